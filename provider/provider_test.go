package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tailored-agentic-units/controlplane/config"
	"github.com/tailored-agentic-units/controlplane/core/protocol"
	"github.com/tailored-agentic-units/controlplane/provider"
)

// parseContent extracts choices[0].message.content from a chat completion
// response body.
func parseContent(t *testing.T, body json.RawMessage) string {
	t.Helper()
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("unmarshal completion body: %v", err)
	}
	if len(parsed.Choices) == 0 {
		t.Fatal("completion body has no choices")
	}
	return parsed.Choices[0].Message.Content
}

func testConfig(models map[string]config.ModelConfig, defaultModel string) *config.Config {
	cfg := config.Default()
	cfg.Models = models
	cfg.DefaultModel = defaultModel
	return &cfg
}

func TestResolve_DefaultSubstitution(t *testing.T) {
	r := provider.NewResolver(testConfig(map[string]config.ModelConfig{
		"local": {Provider: config.ProviderMock},
	}, "local"))

	h, err := r.Resolve("")
	if err != nil {
		t.Fatalf("resolve with empty key failed: %v", err)
	}
	if h == nil {
		t.Fatal("resolve returned nil handle")
	}
}

func TestResolve_FirstKeyFallback(t *testing.T) {
	// No default configured: empty key falls back to the first key in
	// sorted order, which is "alpha".
	r := provider.NewResolver(testConfig(map[string]config.ModelConfig{
		"beta":  {Provider: "unheard-of"},
		"alpha": {Provider: config.ProviderMock},
	}, ""))

	h, err := r.Resolve("")
	if err != nil {
		t.Fatalf("resolve with empty key failed: %v", err)
	}

	body, err := h.Complete(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("mock completion failed: %v", err)
	}
	if content := parseContent(t, body); content != provider.MockContent {
		t.Errorf("got content %q, want %q (the mock handle for alpha)", content, provider.MockContent)
	}
}

func TestResolve_NotFound(t *testing.T) {
	r := provider.NewResolver(testConfig(map[string]config.ModelConfig{
		"local": {Provider: config.ProviderMock},
	}, "local"))

	_, err := r.Resolve("imaginary")
	if !errors.Is(err, provider.ErrModelNotFound) {
		t.Errorf("got error %v, want ErrModelNotFound", err)
	}
}

func TestResolve_CachesHandles(t *testing.T) {
	r := provider.NewResolver(testConfig(map[string]config.ModelConfig{
		"local": {Provider: config.ProviderMock},
	}, "local"))

	h1, err := r.Resolve("local")
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	h2, err := r.Resolve("local")
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if h1 != h2 {
		t.Error("resolve should return the cached handle for the same key")
	}
}

func TestMock_CannedResponse(t *testing.T) {
	r := provider.NewResolver(testConfig(map[string]config.ModelConfig{
		"local": {Provider: config.ProviderMock},
	}, "local"))

	h, _ := r.Resolve("local")
	body, err := h.Complete(context.Background(), json.RawMessage(`{"messages":[]}`))
	if err != nil {
		t.Fatalf("mock completion failed: %v", err)
	}
	if content := parseContent(t, body); content != provider.MockContent {
		t.Errorf("got content %q, want %q", content, provider.MockContent)
	}
}

// capture records what the fake backend received.
type capture struct {
	path          string
	authorization string
	body          map[string]any
}

func fakeBackend(t *testing.T, status int, response string) (*httptest.Server, *capture) {
	t.Helper()
	cap := &capture{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cap.path = r.URL.Path
		cap.authorization = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &cap.body)
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(server.Close)
	return server, cap
}

func TestOpenAI_EndpointAndModelInjection(t *testing.T) {
	server, cap := fakeBackend(t, http.StatusOK, `{"choices":[]}`)

	r := provider.NewResolver(testConfig(map[string]config.ModelConfig{
		"remote": {Provider: config.ProviderOpenAI, URL: server.URL, ModelID: "qwen2.5"},
	}, ""))

	h, err := r.Resolve("remote")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if _, err := h.Complete(context.Background(), json.RawMessage(`{"messages":[],"model":"override-me"}`)); err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	if cap.path != "/v1/chat/completions" {
		t.Errorf("got path %q, want %q", cap.path, "/v1/chat/completions")
	}
	if cap.body["model"] != "qwen2.5" {
		t.Errorf("got model %v, want %q", cap.body["model"], "qwen2.5")
	}
}

func TestOpenAI_TrailingV1NotDoubled(t *testing.T) {
	server, cap := fakeBackend(t, http.StatusOK, `{}`)

	r := provider.NewResolver(testConfig(map[string]config.ModelConfig{
		"remote": {Provider: config.ProviderOpenAI, URL: server.URL + "/v1"},
	}, ""))

	h, _ := r.Resolve("remote")
	if _, err := h.Complete(context.Background(), json.RawMessage(`{}`)); err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	if cap.path != "/v1/chat/completions" {
		t.Errorf("got path %q, want %q", cap.path, "/v1/chat/completions")
	}
}

func TestOpenAI_PlaceholderModelID(t *testing.T) {
	server, cap := fakeBackend(t, http.StatusOK, `{}`)

	r := provider.NewResolver(testConfig(map[string]config.ModelConfig{
		"remote": {Provider: config.ProviderOpenAI, URL: server.URL},
	}, ""))

	h, _ := r.Resolve("remote")
	if _, err := h.Complete(context.Background(), json.RawMessage(`{}`)); err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	if cap.body["model"] != "default" {
		t.Errorf("got model %v, want placeholder %q", cap.body["model"], "default")
	}
}

func TestOpenAI_AuthHeader(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		wantAuth string
	}{
		{"key set", "sk-test", "Bearer sk-test"},
		{"key empty", "", ""},
		{"key none", "none", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, cap := fakeBackend(t, http.StatusOK, `{}`)

			r := provider.NewResolver(testConfig(map[string]config.ModelConfig{
				"remote": {Provider: config.ProviderOpenAI, URL: server.URL, APIKey: tt.apiKey},
			}, ""))

			h, _ := r.Resolve("remote")
			if _, err := h.Complete(context.Background(), json.RawMessage(`{}`)); err != nil {
				t.Fatalf("completion failed: %v", err)
			}
			if cap.authorization != tt.wantAuth {
				t.Errorf("got Authorization %q, want %q", cap.authorization, tt.wantAuth)
			}
		})
	}
}

func TestOpenAI_NonSuccessStatus(t *testing.T) {
	server, _ := fakeBackend(t, http.StatusBadGateway, `upstream exploded`)

	r := provider.NewResolver(testConfig(map[string]config.ModelConfig{
		"remote": {Provider: config.ProviderOpenAI, URL: server.URL},
	}, ""))

	h, _ := r.Resolve("remote")
	_, err := h.Complete(context.Background(), json.RawMessage(`{}`))

	var backendErr *provider.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("got error %v, want BackendError", err)
	}
	if backendErr.Status != http.StatusBadGateway {
		t.Errorf("got status %d, want %d", backendErr.Status, http.StatusBadGateway)
	}
	if backendErr.Body != "upstream exploded" {
		t.Errorf("got body %q, want the upstream response body", backendErr.Body)
	}
}

func TestOpenAI_UnrecognizedKindFallsBack(t *testing.T) {
	// An unrecognized provider kind must behave identically to an explicit
	// openai kind: same endpoint suffix, same auth rule.
	server, cap := fakeBackend(t, http.StatusOK, `{}`)

	r := provider.NewResolver(testConfig(map[string]config.ModelConfig{
		"novel": {Provider: "some-future-backend", URL: server.URL, APIKey: "sk-x", ModelID: "m1"},
	}, ""))

	h, err := r.Resolve("novel")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if _, err := h.Complete(context.Background(), json.RawMessage(`{}`)); err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	if cap.path != "/v1/chat/completions" {
		t.Errorf("got path %q, want %q", cap.path, "/v1/chat/completions")
	}
	if cap.authorization != "Bearer sk-x" {
		t.Errorf("got Authorization %q, want %q", cap.authorization, "Bearer sk-x")
	}
	if cap.body["model"] != "m1" {
		t.Errorf("got model %v, want %q", cap.body["model"], "m1")
	}
}

func TestList(t *testing.T) {
	r := provider.NewResolver(testConfig(map[string]config.ModelConfig{
		"local":  {Provider: config.ProviderMock, Name: "Local", Description: "canned"},
		"remote": {Provider: config.ProviderOpenAI, URL: "http://example.com"},
	}, ""))

	infos := r.List()
	if len(infos) != 2 {
		t.Fatalf("got %d models, want 2", len(infos))
	}

	byKey := make(map[string]protocol.ModelInfo, len(infos))
	for _, info := range infos {
		byKey[info.Key] = info
	}
	if _, ok := byKey["local"]; !ok {
		t.Error("missing model key local")
	}
	if _, ok := byKey["remote"]; !ok {
		t.Error("missing model key remote")
	}
	if byKey["local"].Name != "Local" {
		t.Errorf("got name %q, want %q", byKey["local"].Name, "Local")
	}
}
