package orchestration

import (
	"errors"
	"fmt"

	"github.com/koscakluka/ema-interview/core/interview"
)

var (
	// ErrInvalidStateTransition is returned when an operation is not
	// permitted in the current state. The state is left unchanged.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrAlreadyComplete is returned by every operation once the session
	// has completed.
	ErrAlreadyComplete = errors.New("session already complete")
	// ErrSessionCancelled is returned by every operation once the session
	// has been cancelled.
	ErrSessionCancelled = errors.New("session cancelled")
)

// TransitionError describes a rejected operation.
type TransitionError struct {
	Operation string
	State     interview.State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not permitted in state %s", e.Operation, e.State)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStateTransition }

func newTransitionError(operation string, state interview.State) error {
	return &TransitionError{Operation: operation, State: state}
}
