// Package server implements the two routers of the control plane: the
// client-facing router that creates sessions and forwards user input, and
// the worker-facing router that interprets capability requests against the
// session registry, context store, provider resolver, and tool registry.
// Both speak JSON envelopes over WebSocket streams.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tailored-agentic-units/controlplane/config"
	"github.com/tailored-agentic-units/controlplane/core/protocol"
	"github.com/tailored-agentic-units/controlplane/observability"
	"github.com/tailored-agentic-units/controlplane/provider"
	"github.com/tailored-agentic-units/controlplane/registry"
	"github.com/tailored-agentic-units/controlplane/tools"
)

// Option configures a Server after config-driven initialization.
type Option func(*Server)

// WithObserver overrides the default no-op observer.
func WithObserver(o observability.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithProvisioner overrides the default no-op worker provisioner.
func WithProvisioner(p Provisioner) Option {
	return func(s *Server) { s.provisioner = p }
}

// WithRegistry overrides the config-created session registry.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// WithResolver overrides the config-created provider resolver.
func WithResolver(r *provider.Resolver) Option {
	return func(s *Server) { s.resolver = r }
}

// WithToolRegistry overrides the config-created (empty) tool registry.
func WithToolRegistry(r *tools.Registry) Option {
	return func(s *Server) { s.tools = r }
}

// Server routes messages between client streams, worker streams, and the
// configured backends. One Server instance is constructed at startup and
// shared by every connection handler.
type Server struct {
	cfg         *config.Config
	registry    *registry.Registry
	resolver    *provider.Resolver
	tools       *tools.Registry
	broker      *tools.Broker
	observer    observability.Observer
	provisioner Provisioner
	upgrader    websocket.Upgrader

	completionTimeout time.Duration
}

// New creates a Server from configuration. Subsystems are initialized from
// the config; functional options can override any of them.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:               cfg,
		observer:          observability.NoOpObserver{},
		provisioner:       NoopProvisioner{},
		tools:             tools.NewRegistry(),
		broker:            tools.NewBroker(cfg.RequireApproval),
		completionTimeout: time.Duration(cfg.CompletionTimeout),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = registry.New(s.observer)
	}
	if s.resolver == nil {
		s.resolver = provider.NewResolver(cfg)
	}
	return s
}

// Registry returns the server's session registry.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Tools returns the server's tool registry for host registration.
func (s *Server) Tools() *tools.Registry {
	return s.tools
}

// Handler returns the HTTP handler exposing the two websocket endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/client", s.handleClient)
	mux.HandleFunc("/v1/worker", s.handleWorker)
	return mux
}

// Shutdown pushes a shutdown envelope to every bound worker, stopping early
// if ctx is canceled. Send failures are ignored; the worker is going away
// either way.
func (s *Server) Shutdown(ctx context.Context) {
	for _, id := range s.registry.Sessions() {
		if ctx.Err() != nil {
			return
		}
		_ = s.registry.SendToWorker(id, protocol.WorkerReply{Type: protocol.WorkerShutdown})
	}
}

func (s *Server) emit(eventType observability.EventType, level observability.Level, sessionID string, data map[string]any) {
	s.observer.OnEvent(context.Background(), observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "server",
		Session:   sessionID,
		Data:      data,
	})
}
