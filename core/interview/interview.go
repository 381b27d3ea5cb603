// Package interview holds the data model of a running interview session:
// the fixed question sequence, the per-question answers and the ledger that
// records them in order.
package interview

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinScore = 1
	MaxScore = 10
)

var ErrNoQuestions = errors.New("session requires at least one question")

// Question is a single entry of the session's question sequence.
type Question struct {
	Index int
	Text  string
}

// Session is created once at the start of an interview. Questions are never
// mutated after creation.
type Session struct {
	ID             string
	JobDescription string
	Questions      []Question
	StartedAt      time.Time

	Completed    bool
	TotalElapsed time.Duration
}

type SessionOption func(*Session)

func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		if id != "" {
			s.ID = id
		}
	}
}

// WithJobDescription attaches the job context that evaluators use when
// judging answers.
func WithJobDescription(jobDescription string) SessionOption {
	return func(s *Session) { s.JobDescription = strings.TrimSpace(jobDescription) }
}

// NewSession builds a session from an ordered list of question texts. Blank
// questions are rejected as the whole sequence would otherwise be unusable for
// speech output.
func NewSession(questions []string, opts ...SessionOption) (Session, error) {
	session := Session{ID: uuid.NewString()}
	for _, opt := range opts {
		opt(&session)
	}

	for _, text := range questions {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		session.Questions = append(session.Questions, Question{Index: len(session.Questions), Text: text})
	}

	if len(session.Questions) == 0 {
		return Session{}, ErrNoQuestions
	}

	return session, nil
}

func (s Session) QuestionCount() int { return len(s.Questions) }

// Question returns the question at index, or false when out of range.
func (s Session) Question(index int) (Question, bool) {
	if index < 0 || index >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[index], true
}

// Clone returns a copy that shares no backing storage with s.
func (s Session) Clone() Session {
	s.Questions = slices.Clone(s.Questions)
	return s
}

// Evaluation is the evaluator's judgement of one answer. It is opaque to the
// orchestrator apart from the score.
type Evaluation struct {
	Score       int
	Strengths   []string
	Weaknesses  []string
	Suggestions []string

	// Unscored marks the sentinel recorded when no evaluation could be
	// obtained. Any other evaluation counts towards the mean.
	Unscored bool
}

// Unscored returns the sentinel evaluation recorded when the evaluator could
// not be reached after all retries.
func Unscored() Evaluation {
	return Evaluation{Unscored: true}
}

func (e Evaluation) IsUnscored() bool { return e.Unscored }

// Answer is the recorded outcome of one question. It is created exactly once
// and never modified.
type Answer struct {
	QuestionIndex int
	Question      string
	Transcript    string
	Evaluation    Evaluation
	Elapsed       time.Duration
	RecordedAt    time.Time
}
