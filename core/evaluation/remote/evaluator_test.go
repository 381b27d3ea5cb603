package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/ema-interview/core/evaluation"
)

func TestEvaluate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/evaluate" {
			t.Errorf("expected POST /api/evaluate, got %s %s", r.Method, r.URL.Path)
		}
		var body evaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if body.Transcript != "" {
			t.Errorf("expected empty transcript to be sent as is, got %q", body.Transcript)
		}
		if body.JobDescription != "SRE" {
			t.Errorf("expected job description SRE, got %q", body.JobDescription)
		}
		_, _ = w.Write([]byte(`{"score": 2, "strengths": ["Showed up"], "weaknesses": ["No answer"], "suggestions": ["Say something"]}`))
	}))
	defer server.Close()

	evaluator, err := NewEvaluator(server.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	evaluated, err := evaluator.Evaluate(context.Background(), evaluation.Request{
		Question:       "What is an SLO?",
		JobDescription: "SRE",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if evaluated.Score != 2 || evaluated.Strengths[0] != "Showed up" {
		t.Fatalf("expected decoded evaluation, got %+v", evaluated)
	}
}

func TestEvaluateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "Failed to evaluate answer"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	evaluator, err := NewEvaluator(server.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := evaluator.Evaluate(context.Background(), evaluation.Request{}); !errors.Is(err, evaluation.ErrEvaluationFailed) {
		t.Fatalf("expected ErrEvaluationFailed, got %v", err)
	}
}

func TestEvaluateHonoursContext(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(block)

	evaluator, err := NewEvaluator(server.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := evaluator.Evaluate(ctx, evaluation.Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
