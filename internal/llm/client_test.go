package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/atlas-mind/backend/pkg/circuitbreaker"
	"github.com/atlas-mind/backend/pkg/retry"
)

func newTestClient(baseURL string) *Client {
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = baseURL + "/v1"

	return &Client{
		client:      openai.NewClientWithConfig(cfg),
		model:       "gpt-4o-mini",
		temperature: 0.2,
		maxTokens:   256,
		timeout:     5 * time.Second,
		cb: circuitbreaker.NewCircuitBreaker("llm-test", circuitbreaker.Config{
			FailureThreshold: 10,
			SuccessThreshold: 1,
			Timeout:          time.Second,
		}),
		retryConfig: retry.Config{
			MaxAttempts:  1,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1,
		},
	}
}

func TestCompleteReturnsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "MATCH (r:Resource) RETURN r"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
		}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).Complete(context.Background(), CompletionRequest{
		SystemPrompt: "translate",
		UserPrompt:   "list resources",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "MATCH (r:Resource) RETURN r" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 20 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}
}

func TestCompleteEmptyChoicesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "cmpl-2",
			"object": "chat.completion",
			"choices": [],
			"usage": {"prompt_tokens": 12, "completion_tokens": 0, "total_tokens": 12}
		}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Complete(context.Background(), CompletionRequest{
		SystemPrompt: "translate",
		UserPrompt:   "list resources",
	})
	if err == nil {
		t.Fatal("expected error for response with no choices")
	}
	if !strings.Contains(err.Error(), "no choices") {
		t.Errorf("error = %v", err)
	}
}
