package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
)

type slowGenerator struct{}

func (slowGenerator) Generate(ctx context.Context, msgs []ChatMessage) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestLimitAppliesTimeout(t *testing.T) {
	gen := Limit(slowGenerator{}, 0, 10*time.Millisecond)
	_, err := gen.Generate(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLimitPassesThrough(t *testing.T) {
	mock := NewMockGenerator("hello")
	got, err := Limit(mock, 600, 0).Generate(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
}

func TestToGeminiContentsMergesRoles(t *testing.T) {
	system, history := toGeminiContents([]ChatMessage{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleUser, Content: "Brannoc: hello"},
		{Role: RoleAssistant, Content: "greetings"},
		{Role: RoleUser, Content: "go on"},
	})
	if system != "persona" {
		t.Errorf("unexpected system %q", system)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(history))
	}
	if history[0].Role != "user" || len(history[0].Parts) != 2 {
		t.Errorf("expected merged user turn, got %+v", history[0])
	}
	if history[1].Role != "model" {
		t.Errorf("expected model turn, got %s", history[1].Role)
	}
}

func TestGetText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("The hatch "), genai.Text("opens.")}},
		}},
	}
	if got := getText(resp); got != "The hatch opens." {
		t.Errorf("unexpected text %q", got)
	}
	if got := getText(nil); got != "" {
		t.Errorf("expected empty text for nil response, got %q", got)
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var gotReq struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" Stay sharp. "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	gen := NewOpenAI("test-key", srv.URL+"/v1", "test-model")
	got, err := gen.Generate(context.Background(), []ChatMessage{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "Stay sharp." {
		t.Errorf("unexpected reply %q", got)
	}
	if gotReq.Model != "test-model" || len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("unexpected request %+v", gotReq)
	}
}

func TestOpenAIGenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI("k", srv.URL+"/v1", "m").Generate(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error")
	}
}
