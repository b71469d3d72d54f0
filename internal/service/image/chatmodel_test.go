package image

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/zephyrhk/answer-machine/backend/internal/config"
)

func TestChatModelGenerate(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"https://img.example/ok.png"}}]}`))
	}))
	defer server.Close()

	m := newChatModel(
		config.AIConfig{APIKey: "secret-key", BaseURL: server.URL, Timeout: 5},
		config.ImageConfig{Model: "Imagen-4", Aspect: "3:2", Quality: "high"},
	)

	msg, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("draw a cat")})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if msg.Content != "https://img.example/ok.png" {
		t.Fatalf("unexpected content: %q", msg.Content)
	}

	if gotAuth != "Bearer secret-key" {
		t.Fatalf("unexpected Authorization header: %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotBody.Model != "Imagen-4" || gotBody.Aspect != "3:2" || gotBody.Quality != "high" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if gotBody.Stream {
		t.Fatal("image requests must not stream")
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" || gotBody.Messages[0].Content != "draw a cat" {
		t.Fatalf("unexpected messages: %+v", gotBody.Messages)
	}
}

func TestChatModelGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("model overloaded"))
	}))
	defer server.Close()

	m := newChatModel(config.AIConfig{APIKey: "k", BaseURL: server.URL, Timeout: 5}, config.ImageConfig{Model: "Imagen-4"})

	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("draw")})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "API error (status 503)") || !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChatModelGenerateNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	m := newChatModel(config.AIConfig{APIKey: "k", BaseURL: server.URL, Timeout: 5}, config.ImageConfig{Model: "Imagen-4"})

	if _, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("draw")}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestChatModelStreamUnsupported(t *testing.T) {
	m := newChatModel(config.AIConfig{APIKey: "k", BaseURL: "http://unused", Timeout: 5}, config.ImageConfig{})
	if _, err := m.Stream(context.Background(), nil); err == nil {
		t.Fatal("expected stream to be unsupported")
	}
}
