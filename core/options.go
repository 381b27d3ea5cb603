package orchestration

import (
	"time"

	"github.com/koscakluka/ema-interview/core/evaluation"
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/interview"
	"github.com/koscakluka/ema-interview/core/speech"
)

type OrchestratorOption func(*Orchestrator)

// WithSpeechOutput sets how questions are spoken. Without it questions are
// shown as text only and asking ends immediately.
func WithSpeechOutput(output speech.Output) OrchestratorOption {
	return func(o *Orchestrator) {
		if output != nil {
			o.output = output
		}
	}
}

// WithSpeechCapture sets how answers are captured. Without it every attempt
// to record fails with a capture unavailable error.
func WithSpeechCapture(capture speech.Capture) OrchestratorOption {
	return func(o *Orchestrator) {
		if capture != nil {
			o.capture = capture
		}
	}
}

func WithEvaluator(evaluator evaluation.Evaluator) OrchestratorOption {
	return func(o *Orchestrator) { o.evaluator = evaluator }
}

func WithRetryPolicy(policy RetryPolicy) OrchestratorOption {
	return func(o *Orchestrator) { o.retryPolicy = policy }
}

// withClock replaces time.Now in tests.
func withClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

type BeginOptions struct {
	onEvent           func(event events.Event)
	onStateChanged    func(state interview.State, questionIndex int)
	onError           func(kind events.ErrorKind, message, suggestion string)
	onSessionComplete func(answers []interview.Answer, aggregate interview.Aggregate, totalElapsed time.Duration)
	onCancellation    func()
}

type BeginOption func(*BeginOptions)

// WithEventCallback registers a callback receiving every event in the
// order it was produced.
func WithEventCallback(callback func(event events.Event)) BeginOption {
	return func(o *BeginOptions) {
		o.onEvent = callback
	}
}

func WithStateChangedCallback(callback func(state interview.State, questionIndex int)) BeginOption {
	return func(o *BeginOptions) {
		o.onStateChanged = callback
	}
}

// WithErrorCallback registers a callback for every surfaced error. The
// suggestion is empty for errors caused by calling operations out of order.
func WithErrorCallback(callback func(kind events.ErrorKind, message, suggestion string)) BeginOption {
	return func(o *BeginOptions) {
		o.onError = callback
	}
}

// WithSessionCompleteCallback registers a callback that fires exactly once,
// when the last answer has been recorded. The answers are a frozen copy of
// the ledger.
func WithSessionCompleteCallback(callback func(answers []interview.Answer, aggregate interview.Aggregate, totalElapsed time.Duration)) BeginOption {
	return func(o *BeginOptions) {
		o.onSessionComplete = callback
	}
}

func WithCancellationCallback(callback func()) BeginOption {
	return func(o *BeginOptions) {
		o.onCancellation = callback
	}
}
