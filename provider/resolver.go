// Package provider maps configured model keys to completion backends.
// A backend receives an opaque JSON payload and returns the raw response
// body; the control plane never interprets the completion beyond routing
// it back to the requesting worker.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/tailored-agentic-units/controlplane/config"
	"github.com/tailored-agentic-units/controlplane/core/protocol"
)

// Handle executes completion requests against one configured backend.
type Handle interface {
	// Complete submits the payload and returns the raw response body.
	Complete(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
}

// Resolver maps model keys to Handles using the configured model catalog.
// Handles are instantiated lazily on first resolution and cached.
type Resolver struct {
	mu      sync.Mutex
	cfg     *config.Config
	client  *http.Client
	handles map[string]Handle
}

// NewResolver creates a Resolver over the given configuration. All
// OpenAI-compatible handles share one HTTP client.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		cfg:     cfg,
		client:  &http.Client{},
		handles: make(map[string]Handle),
	}
}

// Resolve returns the Handle for a model key. An empty key substitutes the
// configured default model key, then the first configured key in sorted
// order. A key matching no configuration entry fails with ErrModelNotFound.
func (r *Resolver) Resolve(modelKey string) (Handle, error) {
	if modelKey == "" {
		modelKey = r.cfg.DefaultModel
	}
	if modelKey == "" {
		keys := make([]string, 0, len(r.cfg.Models))
		for key := range r.cfg.Models {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		if len(keys) > 0 {
			modelKey = keys[0]
		}
	}

	model, ok := r.cfg.Models[modelKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModelNotFound, modelKey)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, cached := r.handles[modelKey]; cached {
		return h, nil
	}

	var h Handle
	switch model.Provider {
	case config.ProviderMock:
		h = &mockHandle{}
	default:
		// Unrecognized kinds deliberately fall back to the
		// OpenAI-compatible wire shape so new backends exposing it work
		// without code changes.
		h = &openAIHandle{model: model, client: r.client}
	}

	r.handles[modelKey] = h
	return h, nil
}

// List returns ModelInfo for every configured model, in no particular
// order.
func (r *Resolver) List() []protocol.ModelInfo {
	infos := make([]protocol.ModelInfo, 0, len(r.cfg.Models))
	for key, model := range r.cfg.Models {
		infos = append(infos, protocol.ModelInfo{
			Key:         key,
			Name:        model.Name,
			Description: model.Description,
		})
	}
	return infos
}
