package http_request

import (
	"net/http"
	"time"
)

// sharedTransport is reused by every http node to pool connections.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
}

// newClient returns a client over the shared transport.
func newClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}

// CloseIdleConnections releases the pooled connections.
func CloseIdleConnections() {
	sharedTransport.CloseIdleConnections()
}
