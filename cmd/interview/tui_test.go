package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	orchestration "github.com/koscakluka/ema-interview/core"
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/interview"
	"github.com/koscakluka/ema-interview/core/speech"
)

type controllerStub struct {
	calls []string
	err   error
}

func (c *controllerStub) record(name string) error {
	c.calls = append(c.calls, name)
	return c.err
}

func (c *controllerStub) StartAnswer() error    { return c.record("start") }
func (c *controllerStub) StopAnswer() error     { return c.record("stop") }
func (c *controllerStub) AskNext() error        { return c.record("next") }
func (c *controllerStub) RepeatQuestion() error { return c.record("repeat") }
func (c *controllerStub) Cancel() error         { return c.record("cancel") }

func newTestModel(t *testing.T, typed *speech.TextCapture) (model, *controllerStub) {
	t.Helper()
	session, err := interview.NewSession([]string{"Tell me about yourself", "Why this role?"})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	ctrl := &controllerStub{}
	return newModel(ctrl, session, typed), ctrl
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(model)
	if !ok {
		t.Fatalf("expected model, got %T", next)
	}
	return updated, cmd
}

func enterState(t *testing.T, m model, state interview.State, index int) model {
	t.Helper()
	m, _ = update(t, m, eventMsg{event: events.NewStateChanged(state, index)})
	return m
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeysDriveOrchestrator(t *testing.T) {
	tests := []struct {
		name  string
		state interview.State
		key   string
		want  []string
	}{
		{name: "enter starts recording", state: interview.StateReadyToRecord, key: "enter", want: []string{"start"}},
		{name: "enter stops recording", state: interview.StateListening, key: "enter", want: []string{"stop"}},
		{name: "n asks next", state: interview.StateReadyForNext, key: "n", want: []string{"next"}},
		{name: "r repeats", state: interview.StateReadyToRecord, key: "r", want: []string{"repeat"}},
		{name: "esc cancels", state: interview.StateAsking, key: "esc", want: []string{"cancel"}},
		{name: "enter ignored while asking", state: interview.StateAsking, key: "enter", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ctrl := newTestModel(t, nil)
			m = enterState(t, m, tt.state, 0)
			_, cmd := update(t, m, keyPress(tt.key))
			if cmd != nil {
				cmd()
			}
			if strings.Join(ctrl.calls, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("expected calls %v, got %v", tt.want, ctrl.calls)
			}
		})
	}
}

func TestTypedAnswerIsSubmitted(t *testing.T) {
	typed := speech.NewTextCapture()
	if err := typed.Start(t.Context(), speech.CaptureCallbacks{}); err != nil {
		t.Fatalf("failed to start capture: %v", err)
	}
	m, ctrl := newTestModel(t, typed)
	m = enterState(t, m, interview.StateListening, 0)

	// keys bound to other actions are typed while answering
	for _, r := range "n r" {
		m, _ = update(t, m, keyPress(string(r)))
	}
	if len(ctrl.calls) != 0 {
		t.Fatalf("expected typing to not trigger actions, got %v", ctrl.calls)
	}
	if got := m.input.Value(); got != "n r" {
		t.Fatalf("expected input %q, got %q", "n r", got)
	}

	_, cmd := update(t, m, keyPress("enter"))
	if cmd == nil {
		t.Fatalf("expected a command submitting the answer")
	}
	cmd()
	if len(ctrl.calls) != 1 || ctrl.calls[0] != "stop" {
		t.Fatalf("expected stop after submit, got %v", ctrl.calls)
	}
	transcript, err := typed.Stop(t.Context())
	if err != nil {
		t.Fatalf("failed to stop capture: %v", err)
	}
	if transcript != "n r" {
		t.Fatalf("expected typed text in capture, got %q", transcript)
	}
}

func TestErrorsAreShown(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m = enterState(t, m, interview.StateReadyToRecord, 0)

	raised := events.NewErrorRaised(events.ErrorKindCaptureUnavailable, 0, errors.New("no microphone"))
	m, _ = update(t, m, eventMsg{event: raised})
	view := m.View()
	if !strings.Contains(view, "no microphone") {
		t.Fatalf("expected error in view, got %q", view)
	}
	if !strings.Contains(view, "microphone and speech recognition settings") {
		t.Fatalf("expected suggestion in view, got %q", view)
	}

	m = enterState(t, m, interview.StateAsking, 1)
	if strings.Contains(m.View(), "no microphone") {
		t.Fatalf("expected error to clear once the next question is asked")
	}
}

func TestOperationErrors(t *testing.T) {
	m, _ := newTestModel(t, nil)

	_, cmd := update(t, m, opErrMsg{err: orchestration.ErrSessionCancelled})
	if cmd == nil {
		t.Fatalf("expected quit after cancellation")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}

	m, _ = update(t, m, opErrMsg{err: errors.New("boom")})
	if m.errText != "boom" {
		t.Fatalf("expected error text, got %q", m.errText)
	}
}

func TestCompletionShowsSummary(t *testing.T) {
	m, _ := newTestModel(t, nil)
	answers := []interview.Answer{
		{QuestionIndex: 0, Question: "Tell me about yourself", Evaluation: interview.Evaluation{Score: 8}},
		{QuestionIndex: 1, Question: "Why this role?", Evaluation: interview.Unscored()},
	}
	aggregate := interview.Aggregate{Count: 2, ScoredCount: 1, MeanScore: 8}
	m, _ = update(t, m, eventMsg{event: events.NewSessionCompleted("s1", answers, aggregate, 0)})

	view := m.View()
	for _, want := range []string{"Interview complete", "8/10", "not scored", "Average score: 8.0 (1 of 2 scored)"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view, got %q", want, view)
		}
	}

	_, cmd := update(t, m, keyPress("enter"))
	if cmd == nil {
		t.Fatalf("expected enter to quit after completion")
	}
}

func TestCancellationQuits(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m, cmd := update(t, m, eventMsg{event: events.NewSessionCancelled(interview.StateListening, 0)})
	if !m.cancelled || cmd == nil {
		t.Fatalf("expected cancellation to quit")
	}
}
