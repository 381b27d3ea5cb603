package events

import (
	"time"

	"github.com/koscakluka/ema-interview/core/interview"
)

const (
	// KindEvaluationStarted identifies an evaluation attempt starting.
	KindEvaluationStarted Kind = "evaluation.started"
	// KindEvaluationRetrying identifies a failed attempt that will be retried.
	KindEvaluationRetrying Kind = "evaluation.retrying"
	// KindEvaluationCompleted identifies a successful evaluation.
	KindEvaluationCompleted Kind = "evaluation.completed"
)

// EvaluationStarted marks an evaluation attempt. Attempt starts at 1.
type EvaluationStarted struct {
	Base
	QuestionIndex int
	Attempt       int
}

// NewEvaluationStarted creates an evaluation started event.
func NewEvaluationStarted(questionIndex, attempt int) EvaluationStarted {
	return EvaluationStarted{Base: NewBase(KindEvaluationStarted), QuestionIndex: questionIndex, Attempt: attempt}
}

// EvaluationRetrying carries the error of the failed attempt and the delay
// before the next one.
type EvaluationRetrying struct {
	Base
	QuestionIndex int
	Attempt       int
	Err           error
	Delay         time.Duration
}

// NewEvaluationRetrying creates an evaluation retrying event.
func NewEvaluationRetrying(questionIndex, attempt int, err error, delay time.Duration) EvaluationRetrying {
	return EvaluationRetrying{
		Base:          NewBase(KindEvaluationRetrying),
		QuestionIndex: questionIndex,
		Attempt:       attempt,
		Err:           err,
		Delay:         delay,
	}
}

// EvaluationCompleted carries the evaluator's result.
type EvaluationCompleted struct {
	Base
	QuestionIndex int
	Evaluation    interview.Evaluation
}

// NewEvaluationCompleted creates an evaluation completed event.
func NewEvaluationCompleted(questionIndex int, evaluation interview.Evaluation) EvaluationCompleted {
	return EvaluationCompleted{Base: NewBase(KindEvaluationCompleted), QuestionIndex: questionIndex, Evaluation: evaluation}
}
