package events

import (
	"time"

	"github.com/koscakluka/ema-interview/core/interview"
)

const (
	// KindStateChanged identifies orchestrator state transitions.
	KindStateChanged Kind = "session.state_changed"
	// KindSessionCompleted identifies session completion.
	KindSessionCompleted Kind = "session.completed"
	// KindSessionCancelled identifies session cancellation.
	KindSessionCancelled Kind = "session.cancelled"
	// KindErrorRaised identifies errors surfaced to the host.
	KindErrorRaised Kind = "session.error"
)

// ErrorKind classifies ErrorRaised events.
type ErrorKind string

const (
	ErrorKindCaptureUnavailable     ErrorKind = "capture_unavailable"
	ErrorKindSpeechUnavailable      ErrorKind = "speech_unavailable"
	ErrorKindEvaluationFailed       ErrorKind = "evaluation_failed"
	ErrorKindInvalidStateTransition ErrorKind = "invalid_state_transition"
	ErrorKindOutOfOrderAppend       ErrorKind = "out_of_order_append"
	ErrorKindAlreadyComplete        ErrorKind = "already_complete"
)

// Recoverable reports whether the session can continue after an error of
// this kind without caller intervention beyond retrying the action.
func (k ErrorKind) Recoverable() bool {
	switch k {
	case ErrorKindCaptureUnavailable, ErrorKindSpeechUnavailable, ErrorKindEvaluationFailed:
		return true
	}
	return false
}

// StateChanged carries the state the orchestrator just entered.
type StateChanged struct {
	Base
	State         interview.State
	QuestionIndex int
}

// NewStateChanged creates a state changed event.
func NewStateChanged(state interview.State, questionIndex int) StateChanged {
	return StateChanged{Base: NewBase(KindStateChanged), State: state, QuestionIndex: questionIndex}
}

// SessionCompleted carries the final ledger snapshot.
type SessionCompleted struct {
	Base
	SessionID    string
	Answers      []interview.Answer
	Aggregate    interview.Aggregate
	TotalElapsed time.Duration
}

// NewSessionCompleted creates a session completed event.
func NewSessionCompleted(sessionID string, answers []interview.Answer, aggregate interview.Aggregate, totalElapsed time.Duration) SessionCompleted {
	return SessionCompleted{
		Base:         NewBase(KindSessionCompleted),
		SessionID:    sessionID,
		Answers:      answers,
		Aggregate:    aggregate,
		TotalElapsed: totalElapsed,
	}
}

// SessionCancelled marks cancellation; State is the state the session was
// in when it was cancelled.
type SessionCancelled struct {
	Base
	State         interview.State
	QuestionIndex int
}

// NewSessionCancelled creates a session cancelled event.
func NewSessionCancelled(state interview.State, questionIndex int) SessionCancelled {
	return SessionCancelled{Base: NewBase(KindSessionCancelled), State: state, QuestionIndex: questionIndex}
}

// ErrorRaised carries a classified error. Suggestion is empty for caller
// errors.
type ErrorRaised struct {
	Base
	ErrorKind     ErrorKind
	Message       string
	Suggestion    string
	QuestionIndex int
	Err           error
}

// NewErrorRaised creates an error event.
func NewErrorRaised(kind ErrorKind, questionIndex int, err error) ErrorRaised {
	event := ErrorRaised{
		Base:          NewBase(KindErrorRaised),
		ErrorKind:     kind,
		QuestionIndex: questionIndex,
		Err:           err,
		Suggestion:    suggestions[kind],
	}
	if err != nil {
		event.Message = err.Error()
	}
	return event
}

var suggestions = map[ErrorKind]string{
	ErrorKindCaptureUnavailable: "Check the microphone and speech recognition settings, then try recording again.",
	ErrorKindSpeechUnavailable:  "Read the question on screen and start recording when ready.",
	ErrorKindEvaluationFailed:   "The answer was recorded without a score. Continue with the next question.",
}
