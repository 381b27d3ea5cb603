package orchestration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-interview/core/evaluation"
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/interview"
	"github.com/koscakluka/ema-interview/core/speech"
)

type outputCall struct {
	text      string
	callbacks speech.OutputCallbacks
}

// speechOutputStub starts every utterance immediately and ends it only when
// the test calls finish.
type speechOutputStub struct {
	mu      sync.Mutex
	err     error
	calls   []outputCall
	cancels atomic.Int32
}

func (s *speechOutputStub) Speak(_ context.Context, text string, callbacks speech.OutputCallbacks) error {
	s.mu.Lock()
	err := s.err
	if err == nil {
		s.calls = append(s.calls, outputCall{text: text, callbacks: callbacks})
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if callbacks.OnStarted != nil {
		callbacks.OnStarted()
	}
	return nil
}

func (s *speechOutputStub) Cancel() error {
	s.cancels.Add(1)
	return nil
}

func (s *speechOutputStub) finish(t *testing.T, call int) {
	t.Helper()
	s.mu.Lock()
	if call >= len(s.calls) {
		s.mu.Unlock()
		t.Fatalf("expected at least %d speak calls, got %d", call+1, len(s.calls))
	}
	callbacks := s.calls[call].callbacks
	s.mu.Unlock()
	callbacks.OnEnded()
}

func (s *speechOutputStub) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	texts := make([]string, 0, len(s.calls))
	for _, call := range s.calls {
		texts = append(texts, call.text)
	}
	return texts
}

type speechCaptureStub struct {
	mu          sync.Mutex
	startErr    error
	transcripts []string
	starts      int
	callbacks   speech.CaptureCallbacks
	// blockStop makes Stop wait for its context.
	blockStop bool
	// startGate, when set, holds Start until it is closed. startEntered is
	// signalled once Start is waiting.
	startGate    chan struct{}
	startEntered chan struct{}

	stops   atomic.Int32
	cancels atomic.Int32
}

func (s *speechCaptureStub) Start(_ context.Context, callbacks speech.CaptureCallbacks) error {
	if s.startGate != nil {
		if s.startEntered != nil {
			s.startEntered <- struct{}{}
		}
		<-s.startGate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.starts++
	s.callbacks = callbacks
	return nil
}

func (s *speechCaptureStub) Stop(ctx context.Context) (string, error) {
	s.stops.Add(1)
	s.mu.Lock()
	block := s.blockStop
	transcript := ""
	if s.starts > 0 && s.starts <= len(s.transcripts) {
		transcript = s.transcripts[s.starts-1]
	}
	s.mu.Unlock()

	if block {
		<-ctx.Done()
	}
	return transcript, nil
}

func (s *speechCaptureStub) Cancel() error {
	s.cancels.Add(1)
	return nil
}

func (s *speechCaptureStub) endNaturally(transcript string) {
	s.mu.Lock()
	callbacks := s.callbacks
	s.mu.Unlock()
	callbacks.OnEnded(transcript)
}

type evaluatorStub struct {
	calls    atomic.Int32
	mu       sync.Mutex
	requests []evaluation.Request
	evaluate func(ctx context.Context, call int, req evaluation.Request) (interview.Evaluation, error)
}

func (s *evaluatorStub) Evaluate(ctx context.Context, req evaluation.Request) (interview.Evaluation, error) {
	call := int(s.calls.Add(1))
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.evaluate(ctx, call, req)
}

func (s *evaluatorStub) transcripts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	transcripts := make([]string, 0, len(s.requests))
	for _, req := range s.requests {
		transcripts = append(transcripts, req.Transcript)
	}
	return transcripts
}

func scoring(score int) *evaluatorStub {
	return &evaluatorStub{evaluate: func(context.Context, int, evaluation.Request) (interview.Evaluation, error) {
		return interview.Evaluation{
			Score:       score,
			Strengths:   []string{"clear"},
			Weaknesses:  []string{"brief"},
			Suggestions: []string{"add detail"},
		}, nil
	}}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
	states chan interview.State
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{states: make(chan interview.State, 128)}
}

func (r *eventRecorder) option() BeginOption {
	return WithEventCallback(func(event events.Event) {
		r.mu.Lock()
		r.events = append(r.events, event)
		r.mu.Unlock()
		if stateChanged, ok := event.(events.StateChanged); ok {
			r.states <- stateChanged.State
		}
	})
}

func (r *eventRecorder) waitForState(t *testing.T, want interview.State) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case state := <-r.states:
			if state == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func (r *eventRecorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]events.Kind, 0, len(r.events))
	for _, event := range r.events {
		kinds = append(kinds, event.Kind())
	}
	return kinds
}

func (r *eventRecorder) raised() []events.ErrorRaised {
	r.mu.Lock()
	defer r.mu.Unlock()
	var raised []events.ErrorRaised
	for _, event := range r.events {
		if typed, ok := event.(events.ErrorRaised); ok {
			raised = append(raised, typed)
		}
	}
	return raised
}

func (r *eventRecorder) count(kind events.Kind) int {
	count := 0
	for _, got := range r.kinds() {
		if got == kind {
			count++
		}
	}
	return count
}

func newTestSession(t *testing.T, questions ...string) interview.Session {
	t.Helper()
	session, err := interview.NewSession(questions, interview.WithJobDescription("Backend engineer"))
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session
}

func fastRetries() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}
