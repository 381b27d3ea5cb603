// Package evaluation scores interview answers.
//
// Evaluators are expected to make a single attempt per call. Retrying is the
// caller's responsibility.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/koscakluka/ema-interview/core/interview"
)

var ErrEvaluationFailed = errors.New("evaluation failed")

// Failed wraps err so it matches ErrEvaluationFailed.
func Failed(err error) error {
	if err == nil {
		return ErrEvaluationFailed
	}
	if errors.Is(err, ErrEvaluationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEvaluationFailed, err)
}

type Request struct {
	SessionID      string
	QuestionIndex  int
	Question       string
	Transcript     string
	JobDescription string
}

type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (interview.Evaluation, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, req Request) (interview.Evaluation, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, req Request) (interview.Evaluation, error) {
	return f(ctx, req)
}

const defaultScore = 5

var (
	defaultStrengths   = []string{"Response provided"}
	defaultWeaknesses  = []string{"Could be more detailed"}
	defaultSuggestions = []string{"Provide more specific examples"}
)

// Result is the evaluation as returned by a model or a remote service.
type Result struct {
	Score       *float64 `json:"score" jsonschema:"minimum=1,maximum=10"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`
}

// Normalize turns a raw result into a scored Evaluation. Missing fields get
// neutral defaults and the score is rounded and clamped into range.
func (r Result) Normalize() interview.Evaluation {
	score := defaultScore
	if r.Score != nil && !math.IsNaN(*r.Score) {
		score = int(math.Round(*r.Score))
	}
	score = max(interview.MinScore, min(interview.MaxScore, score))

	return interview.Evaluation{
		Score:       score,
		Strengths:   cleanList(r.Strengths, defaultStrengths),
		Weaknesses:  cleanList(r.Weaknesses, defaultWeaknesses),
		Suggestions: cleanList(r.Suggestions, defaultSuggestions),
	}
}

func cleanList(items []string, fallback []string) []string {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			cleaned = append(cleaned, item)
		}
	}
	if len(cleaned) == 0 {
		return append([]string(nil), fallback...)
	}
	return cleaned
}
