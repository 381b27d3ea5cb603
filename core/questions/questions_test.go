package questions

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	content := `job_description: "  Platform engineer  "
questions:
  - Tell me about yourself.
  - "   "
  - How do you roll back a bad deploy?
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write question file: %v", err)
	}

	set, err := LoadFile(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if set.JobDescription != "Platform engineer" {
		t.Fatalf("expected trimmed job description, got %q", set.JobDescription)
	}
	if len(set.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(set.Questions))
	}
}

func TestParseRejectsEmptySets(t *testing.T) {
	if _, err := Parse([]byte("job_description: x\nquestions: []\n")); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if _, err := Parse([]byte("questions: [unterminated")); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
