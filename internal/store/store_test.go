package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/koscakluka/ema-interview/core/interview"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newSession(t *testing.T, id string, startedAt time.Time, questions ...string) interview.Session {
	t.Helper()
	session, err := interview.NewSession(questions,
		interview.WithSessionID(id),
		interview.WithJobDescription("Backend engineer"),
	)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	session.StartedAt = startedAt
	return session
}

func TestSaveAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	startedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	session := newSession(t, "s1", startedAt, "Tell me about yourself", "Why Go?")
	session.Completed = true
	session.TotalElapsed = 95 * time.Second
	answers := []interview.Answer{
		{
			QuestionIndex: 0,
			Question:      "Tell me about yourself",
			Transcript:    "I build services",
			Evaluation: interview.Evaluation{
				Score:       7,
				Strengths:   []string{"clear"},
				Weaknesses:  []string{"brief"},
				Suggestions: []string{"add an example"},
			},
			Elapsed:    40 * time.Second,
			RecordedAt: startedAt.Add(40 * time.Second),
		},
		{
			QuestionIndex: 1,
			Question:      "Why Go?",
			Transcript:    "",
			Evaluation:    interview.Unscored(),
			Elapsed:       55 * time.Second,
			RecordedAt:    startedAt.Add(95 * time.Second),
		},
	}

	if err := s.SaveSession(ctx, session, answers); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	record, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if record.Session.JobDescription != "Backend engineer" {
		t.Fatalf("expected job description to round trip, got %q", record.Session.JobDescription)
	}
	if len(record.Session.Questions) != 2 || record.Session.Questions[1].Text != "Why Go?" || record.Session.Questions[1].Index != 1 {
		t.Fatalf("unexpected questions: %+v", record.Session.Questions)
	}
	if !record.Session.StartedAt.Equal(startedAt) {
		t.Fatalf("expected started at %v, got %v", startedAt, record.Session.StartedAt)
	}
	if !record.Session.Completed || record.Session.TotalElapsed != 95*time.Second {
		t.Fatalf("unexpected completion fields: %+v", record.Session)
	}
	if len(record.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(record.Answers))
	}
	first := record.Answers[0]
	if first.Evaluation.Score != 7 || first.Evaluation.Unscored {
		t.Fatalf("unexpected first evaluation: %+v", first.Evaluation)
	}
	if len(first.Evaluation.Suggestions) != 1 || first.Evaluation.Suggestions[0] != "add an example" {
		t.Fatalf("unexpected suggestions: %v", first.Evaluation.Suggestions)
	}
	if first.Elapsed != 40*time.Second {
		t.Fatalf("expected elapsed 40s, got %v", first.Elapsed)
	}
	if !record.Answers[1].Evaluation.IsUnscored() {
		t.Fatalf("expected second answer to stay unscored")
	}

	aggregate := record.Aggregate()
	if aggregate.Count != 2 || aggregate.ScoredCount != 1 || aggregate.MeanScore != 7 {
		t.Fatalf("unexpected aggregate: %+v", aggregate)
	}
}

func TestSaveSessionReplacesAnswers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := newSession(t, "s1", time.Now(), "Q1", "Q2")
	partial := []interview.Answer{{QuestionIndex: 0, Question: "Q1", Evaluation: interview.Unscored(), RecordedAt: time.Now()}}
	if err := s.SaveSession(ctx, session, partial); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	full := append(partial, interview.Answer{QuestionIndex: 1, Question: "Q2", Evaluation: interview.Unscored(), RecordedAt: time.Now()})
	if err := s.SaveSession(ctx, session, full); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	record, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(record.Answers) != 2 {
		t.Fatalf("expected 2 answers after resave, got %d", len(record.Answers))
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetSession(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkComplete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.MarkComplete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.SaveSession(ctx, newSession(t, "s1", time.Now(), "Q1"), nil); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := s.MarkComplete(ctx, "s1"); err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	record, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !record.Session.Completed {
		t.Fatalf("expected session to be marked complete")
	}
}

func TestListSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	older := newSession(t, "older", base, "Q1", "Q2", "Q3")
	newer := newSession(t, "newer", base.Add(time.Hour), "Q1")
	answers := []interview.Answer{
		{QuestionIndex: 0, Question: "Q1", Evaluation: interview.Evaluation{Score: 6}, RecordedAt: base},
		{QuestionIndex: 1, Question: "Q2", Evaluation: interview.Evaluation{Score: 9}, RecordedAt: base},
		{QuestionIndex: 2, Question: "Q3", Evaluation: interview.Unscored(), RecordedAt: base},
	}
	if err := s.SaveSession(ctx, older, answers); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := s.SaveSession(ctx, newer, nil); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	tests := []struct {
		name    string
		limit   int
		wantIDs []string
	}{
		{name: "default limit", limit: 0, wantIDs: []string{"newer", "older"}},
		{name: "limited", limit: 1, wantIDs: []string{"newer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summaries, err := s.ListSessions(ctx, tt.limit)
			if err != nil {
				t.Fatalf("ListSessions: %v", err)
			}
			if len(summaries) != len(tt.wantIDs) {
				t.Fatalf("expected %d sessions, got %d", len(tt.wantIDs), len(summaries))
			}
			for i, id := range tt.wantIDs {
				if summaries[i].ID != id {
					t.Fatalf("expected session %d to be %q, got %q", i, id, summaries[i].ID)
				}
			}
		})
	}

	summaries, err := s.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	got := summaries[1]
	if got.QuestionCount != 3 || got.AnswerCount != 3 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	if got.MeanScore != 7.5 {
		t.Fatalf("expected mean over scored answers 7.5, got %v", got.MeanScore)
	}
}
