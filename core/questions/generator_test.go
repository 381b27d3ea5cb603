package questions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestParseGeneratedJSON(t *testing.T) {
	content := `["q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8", "q9", "q10", "q11"]`
	questions := ParseGenerated(content)
	if len(questions) != MaxGenerated {
		t.Fatalf("expected %d questions, got %d", MaxGenerated, len(questions))
	}
	if questions[0] != "q1" {
		t.Fatalf("expected q1 first, got %q", questions[0])
	}
}

func TestParseGeneratedLines(t *testing.T) {
	content := "```\n# Questions\n1. \"Why this company?\"\n2. What is your biggest strength?\n\nDescribe a conflict.\n```"
	questions := ParseGenerated(content)

	want := append([]string{
		"Why this company?",
		"What is your biggest strength?",
		"Describe a conflict.",
	}, fallbackQuestions...)
	if len(questions) != len(want) {
		t.Fatalf("expected %d questions, got %d: %v", len(want), len(questions), questions)
	}
	for i := range want {
		if questions[i] != want[i] {
			t.Fatalf("expected question %d to be %q, got %q", i, want[i], questions[i])
		}
	}
}

func TestParseGeneratedShortJSONIsNotPadded(t *testing.T) {
	if questions := ParseGenerated(`["only one"]`); len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "Data engineer") {
			t.Errorf("expected prompt to contain the job description, got %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: `["How do you model slowly changing dimensions?", "Tell me about a pipeline you rebuilt."]`,
			}}},
		})
	}))
	defer server.Close()

	generator := NewGenerator(WithAPIKey("test-key"), WithBaseURL(server.URL))
	set, err := generator.Generate(context.Background(), "Data engineer")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if set.JobDescription != "Data engineer" || len(set.Questions) != 2 {
		t.Fatalf("unexpected set %+v", set)
	}
}

func TestGenerateRequiresJobDescription(t *testing.T) {
	generator := NewGenerator(WithAPIKey("test-key"), WithBaseURL("http://127.0.0.1:1"))
	if _, err := generator.Generate(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty job description")
	}
}
