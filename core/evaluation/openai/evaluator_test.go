package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/ema-interview/core/evaluation"
	openai "github.com/sashabaranov/go-openai"
)

func newTestServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
			t.Errorf("expected json object response format, got %+v", req.ResponseFormat)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error": {"message": "unavailable", "type": "server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
			},
		})
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"object": "list", "data": []}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestEvaluate(t *testing.T) {
	server := newTestServer(t, `{"score": 6, "strengths": ["Honest"], "weaknesses": [], "suggestions": ["Quantify impact"]}`, http.StatusOK)
	evaluator := NewEvaluator(WithAPIKey("test-key"), WithBaseURL(server.URL+"/v1"))

	evaluated, err := evaluator.Evaluate(context.Background(), evaluation.Request{
		Question:   "Describe a failure",
		Transcript: "I once shipped a bug.",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if evaluated.Score != 6 {
		t.Fatalf("expected score 6, got %d", evaluated.Score)
	}
	if len(evaluated.Weaknesses) != 1 || evaluated.Weaknesses[0] != "Could be more detailed" {
		t.Fatalf("expected default weaknesses, got %v", evaluated.Weaknesses)
	}
}

func TestEvaluateFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		status  int
	}{
		{"server error", "", http.StatusInternalServerError},
		{"unparseable content", "not json", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.content, tt.status)
			evaluator := NewEvaluator(WithAPIKey("test-key"), WithBaseURL(server.URL+"/v1"))

			_, err := evaluator.Evaluate(context.Background(), evaluation.Request{Question: "q"})
			if !errors.Is(err, evaluation.ErrEvaluationFailed) {
				t.Fatalf("expected ErrEvaluationFailed, got %v", err)
			}
		})
	}
}

func TestPing(t *testing.T) {
	server := newTestServer(t, "", http.StatusOK)
	evaluator := NewEvaluator(WithAPIKey("test-key"), WithBaseURL(server.URL+"/v1"))

	if err := evaluator.Ping(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
