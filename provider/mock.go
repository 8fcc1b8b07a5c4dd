package provider

import (
	"context"
	"encoding/json"
)

// MockContent is the fixed assistant content returned by the mock backend.
const MockContent = "Mock response"

// mockHandle returns a canned chat-completion-shaped response with no
// network call, for testing and offline use.
type mockHandle struct{}

func (h *mockHandle) Complete(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	response := map[string]any{
		"object": "chat.completion",
		"model":  "mock",
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": MockContent,
				},
				"finish_reason": "stop",
			},
		},
	}
	return json.Marshal(response)
}
