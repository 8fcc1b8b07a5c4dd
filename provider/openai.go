package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tailored-agentic-units/controlplane/config"
)

// placeholderModelID is injected when no upstream model identifier is
// configured. Single-model servers ignore it.
const placeholderModelID = "default"

// openAIHandle speaks the OpenAI chat-completions wire shape. It is the
// fallback for every provider kind except mock.
type openAIHandle struct {
	model  config.ModelConfig
	client *http.Client
}

func (h *openAIHandle) Complete(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("invalid completion payload: %w", err)
	}

	modelID := h.model.ModelID
	if modelID == "" {
		modelID = placeholderModelID
	}
	body["model"] = modelID

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(h.model.URL), bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := h.model.APIKey; key != "" && key != "none" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read completion response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &BackendError{Status: resp.StatusCode, Body: string(responseBody)}
	}

	return responseBody, nil
}

// endpoint appends the chat-completions path to the base URL without
// doubling a trailing /v1.
func endpoint(baseURL string) string {
	base := strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}
