package interview

// State is the orchestrator's position in the turn-taking protocol.
type State string

const (
	StateIdle          State = "idle"
	StateAsking        State = "asking"
	StateReadyToRecord State = "ready_to_record"
	StateListening     State = "listening"
	StateEvaluating    State = "evaluating"
	StateReadyForNext  State = "ready_for_next"
	StateComplete      State = "complete"
)

func (s State) String() string { return string(s) }

func (s State) IsTerminal() bool { return s == StateComplete }

// IsAwaiting reports whether the state waits on an outstanding speech or
// evaluation operation rather than on the caller.
func (s State) IsAwaiting() bool {
	switch s {
	case StateAsking, StateListening, StateEvaluating:
		return true
	}
	return false
}
