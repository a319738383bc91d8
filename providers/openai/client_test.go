package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"waleads/llm"
)

func TestChatMapsFinishReasonLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["max_tokens"] != float64(200) {
			t.Errorf("max_tokens = %v, want 200", req["max_tokens"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]string{"content": "partial answer"},
				"finish_reason": "length",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 200, "total_tokens": 210},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	res, err := c.Chat(context.Background(), llm.Request{
		Model:     "gpt-4o-mini",
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		MaxTokens: 200,
	})
	if err != nil {
		t.Fatalf("Chat error = %v", err)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true for finish_reason=length")
	}
	if res.Text != "partial answer" {
		t.Errorf("Text = %q, want %q", res.Text, "partial answer")
	}
	if res.Usage.OutputTokens != 200 {
		t.Errorf("OutputTokens = %d, want 200", res.Usage.OutputTokens)
	}
}

func TestChatNaturalStop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]string{"content": "done"},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	res, err := New(srv.URL, "").Chat(context.Background(), llm.Request{Model: "m"})
	if err != nil {
		t.Fatalf("Chat error = %v", err)
	}
	if res.Truncated {
		t.Error("Truncated = true, want false for finish_reason=stop")
	}
}

func TestChatErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limit", "type": "rate_limit_error"},
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Chat(context.Background(), llm.Request{Model: "m"})
	if err == nil {
		t.Fatal("Chat error = nil, want rate limit error")
	}
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("Chat error = %v, want ErrUnavailable for 429", err)
	}
	if !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("Chat error = %v, want provider message in envelope", err)
	}
}

func TestChatBadRequestIsNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "bad model", "type": "invalid_request_error"},
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Chat(context.Background(), llm.Request{Model: "m"})
	if err == nil {
		t.Fatal("Chat error = nil, want invalid request error")
	}
	if errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("Chat error = %v, want permanent error for 400", err)
	}
}
