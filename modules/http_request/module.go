// Package http_request provides the "http" node kind, which fetches a URL
// when it cooks. Changing the url or method parameters, or an upstream
// expression they depend on, triggers a new request.
package http_request

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/specialistvlad/cookgraph/internal/ctxlog"
	"github.com/specialistvlad/cookgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// MaxBodySize caps the response body a node keeps.
const MaxBodySize = 4 << 20

// Response is the output of an http node. Data holds the decoded body when
// the server answered with JSON.
type Response struct {
	StatusCode int
	Body       string
	Data       any
}

// Cook performs the request described by the node's parameters.
func Cook(ctx context.Context, in registry.CookInput) (any, error) {
	url := registry.Param(in, "url", "")
	method := registry.Param(in, "method", http.MethodGet)
	timeout := time.Duration(registry.Param(in, "timeout", 10.0) * float64(time.Second))
	logger := ctxlog.FromContext(ctx).With("node", in.Path, "method", method, "url", url)

	if url == "" {
		return nil, fmt.Errorf("url is empty")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	logger.Debug("Making HTTP request")
	resp, err := newClient(timeout).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	logger.Debug("Received HTTP response", "status", resp.Status)

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	out := Response{StatusCode: resp.StatusCode, Body: string(body)}
	if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && mediaType == "application/json" {
		if err := json.Unmarshal(body, &out.Data); err != nil {
			return nil, fmt.Errorf("failed to decode JSON body: %w", err)
		}
	}
	return out, nil
}

// Register registers the node kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.NodeType{
		Kind: "http",
		Doc:  "Fetches a URL and outputs the response.",
		Params: []registry.ParamSpec{
			{Name: "url", Default: "", Type: cty.String},
			{Name: "method", Default: http.MethodGet, Type: cty.String},
			{Name: "timeout", Default: 10.0, Type: cty.Number, Doc: "Seconds."},
		},
		New: func() registry.Operator { return registry.OperatorFunc(Cook) },
	})
}
