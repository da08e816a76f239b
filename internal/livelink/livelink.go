// Package livelink streams cook events of a scene to a socket.io endpoint, so
// an external viewer can follow what the engine recomputes frame by frame.
package livelink

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/cookgraph/internal/ctxlog"
	"github.com/specialistvlad/cookgraph/internal/graph"
	"github.com/specialistvlad/cookgraph/internal/scheduler"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultEvent is the socket.io event name messages are emitted under.
const DefaultEvent = "cook"

// Config describes the endpoint to publish to.
type Config struct {
	// URL is the socket.io endpoint; its path is the engine.io path and its
	// fragment, if any, the namespace.
	URL                string
	Event              string
	Timeout            time.Duration
	InsecureSkipVerify bool
	// Queued also publishes EventQueued, which is noisy.
	Queued bool
}

// Message is the payload of one emitted event.
type Message struct {
	Scene    string  `json:"scene"`
	Kind     string  `json:"kind"`
	Node     uint64  `json:"node"`
	Path     string  `json:"path"`
	Trigger  uint64  `json:"trigger,omitempty"`
	Duration float64 `json:"duration_ms,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Describer names a graph node, e.g. Scene.Describe.
type Describer func(graph.NodeID) string

// NewMessage builds the payload for ev.
func NewMessage(scene uuid.UUID, describe Describer, ev scheduler.Event) Message {
	m := Message{
		Scene:    scene.String(),
		Kind:     ev.Kind.String(),
		Node:     uint64(ev.Node),
		Duration: float64(ev.Duration) / float64(time.Millisecond),
	}
	if ev.Trigger != graph.NoTrigger {
		m.Trigger = uint64(ev.Trigger)
	}
	if describe != nil {
		m.Path = describe(ev.Node)
	}
	if ev.Err != nil {
		m.Error = ev.Err.Error()
	}
	return m
}

// Publisher emits cooker events over one socket.io connection.
type Publisher struct {
	io       *socket.Socket
	cfg      Config
	scene    uuid.UUID
	describe Describer
	logger   *slog.Logger

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Dial connects to cfg.URL and waits for the connection to be established.
func Dial(ctx context.Context, cfg Config, scene uuid.UUID, describe Describer) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("component", "livelink", "url", cfg.URL)
	if cfg.Event == "" {
		cfg.Event = DefaultEvent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid live link URL %q: scheme and host are required", cfg.URL)
	}
	namespace := "/"
	if parsedURL.Fragment != "" {
		namespace = "/" + parsedURL.Fragment
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	connected := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Live link connected", "namespace", namespace, "sid", io.Id())
		select {
		case connected <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connection refused")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connected <- err:
		default:
		}
	})
	io.On(types.EventName("disconnect"), func(reason ...any) {
		logger.Debug("Live link disconnected", "reason", reason)
	})

	io.Connect()

	timer := time.NewTimer(cfg.Timeout)
	defer timer.Stop()
	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("live link connection failed: %w", err)
		}
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s while waiting for live link connection", cfg.Timeout)
	case <-ctx.Done():
		io.Disconnect()
		return nil, ctx.Err()
	}

	return &Publisher{io: io, cfg: cfg, scene: scene, describe: describe, logger: logger}, nil
}

// Listener returns the function to register with Cooker.AddListener.
func (p *Publisher) Listener() scheduler.Listener {
	return func(ev scheduler.Event) {
		if ev.Kind == scheduler.EventQueued && !p.cfg.Queued {
			return
		}
		p.publish(NewMessage(p.scene, p.describe, ev))
	}
}

func (p *Publisher) publish(m Message) {
	if !p.io.Connected() {
		p.dropped.Add(1)
		return
	}
	if err := p.io.Emit(p.cfg.Event, m); err != nil {
		p.dropped.Add(1)
		p.logger.Debug("Live link emit failed", "event", p.cfg.Event, "error", err)
		return
	}
	p.sent.Add(1)
}

// Sent is the number of messages emitted so far.
func (p *Publisher) Sent() uint64 { return p.sent.Load() }

// Dropped is the number of messages lost while disconnected.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// Close disconnects the socket.
func (p *Publisher) Close() {
	p.logger.Debug("Disconnecting live link", "sent", p.Sent(), "dropped", p.Dropped())
	p.io.Disconnect()
}
