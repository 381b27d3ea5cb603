package orchestration

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/koscakluka/ema-interview/core/evaluation"
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/interview"
	"github.com/koscakluka/ema-interview/core/speech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var errNoEvaluator = errors.New("no evaluator configured")

// Orchestrator runs one interview session: it asks each question, captures
// the answer, has it evaluated and records it, strictly in question order.
//
// Operations may be called from any goroutine, including from inside event
// callbacks. Events are delivered one at a time in the order they were
// produced, on whichever goroutine happens to flush them.
//
// An orchestrator is single use. Once complete or cancelled every operation
// fails.
type Orchestrator struct {
	output      speech.Output
	capture     speech.Capture
	evaluator   evaluation.Evaluator
	retryPolicy RetryPolicy
	now         func() time.Time

	ledger *interview.Ledger

	mu            sync.Mutex
	session       interview.Session
	state         interview.State
	questionIndex int
	// turn changes whenever an outstanding speech, capture or evaluation
	// operation is superseded. Callbacks carrying an older turn are dropped.
	turn      uint64
	askedAt   time.Time
	announced bool
	// starting and stopping are set while the capture is being started or
	// stopped outside mu.
	starting  bool
	stopping  bool
	cancelled bool
	lastErr   error

	ctx       context.Context
	cancelCtx context.CancelFunc
	done      chan struct{}
	doneOnce  sync.Once

	emit        eventEmitter
	pending     []events.Event
	dispatching bool
}

func NewOrchestrator(session interview.Session, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		output:      speech.NewOutput(),
		capture:     speech.NewCapture(),
		retryPolicy: DefaultRetryPolicy(),
		now:         time.Now,
		ledger:      interview.NewLedger(),
		session:     session.Clone(),
		state:       interview.StateIdle,
		ctx:         context.Background(),
		done:        make(chan struct{}),
		emit:        noopEventEmitter,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Begin starts the session timer and asks the first question.
//
// ctx bounds the whole session: cancelling it cancels the session.
func (o *Orchestrator) Begin(ctx context.Context, opts ...BeginOption) error {
	err := o.begin(ctx, opts...)
	o.flush()
	return err
}

func (o *Orchestrator) begin(ctx context.Context, opts ...BeginOption) error {
	options := BeginOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	o.mu.Lock()
	if err := o.guard("begin", interview.StateIdle); err != nil {
		o.mu.Unlock()
		return err
	}
	if o.session.QuestionCount() == 0 {
		o.mu.Unlock()
		return interview.ErrNoQuestions
	}

	o.emit = newCallbackEventEmitter(options)
	o.ctx, o.cancelCtx = context.WithCancel(ctx)
	o.session.StartedAt = o.now()
	turn := o.enterAsking(true)
	question := o.session.Questions[o.questionIndex]
	sessionCtx, done := o.ctx, o.done
	o.mu.Unlock()

	go o.watchContext(sessionCtx, done)

	o.speak(sessionCtx, turn, question)
	return nil
}

// StartAnswer starts capturing the answer to the current question. If
// capture cannot start the session stays ready to record.
func (o *Orchestrator) StartAnswer() error {
	err := o.startAnswer()
	o.flush()
	return err
}

func (o *Orchestrator) startAnswer() error {
	o.mu.Lock()
	if err := o.guard("start answer", interview.StateReadyToRecord); err != nil {
		o.mu.Unlock()
		return err
	}
	// not announced until capture has started
	o.state = interview.StateListening
	o.announced = false
	o.starting = true
	o.turn++
	turn, questionIndex, sessionID, ctx := o.turn, o.questionIndex, o.session.ID, o.ctx
	o.mu.Unlock()

	ctx, span := tracer.Start(ctx, "start answer")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int("question.index", questionIndex),
	)

	err := o.capture.Start(ctx, speech.CaptureCallbacks{
		OnEnded: func(transcript string) { o.onCaptureEnded(turn, transcript) },
	})

	o.mu.Lock()
	o.starting = false
	if o.turn != turn {
		cancelled := o.cancelled
		o.mu.Unlock()
		if cancelled {
			if err == nil {
				_ = o.capture.Cancel()
			}
			return ErrSessionCancelled
		}
		// ended on its own before we got here
		return nil
	}

	if err != nil {
		o.state = interview.StateReadyToRecord
		o.lastErr = err
		o.queue(events.NewErrorRaised(events.ErrorKindCaptureUnavailable, questionIndex, err))
		o.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	o.announceListening()
	o.mu.Unlock()
	return nil
}

// StopAnswer ends the capture and submits the transcript, even an empty one,
// for evaluation.
func (o *Orchestrator) StopAnswer() error {
	err := o.stopAnswer()
	o.flush()
	return err
}

func (o *Orchestrator) stopAnswer() error {
	o.mu.Lock()
	if err := o.guard("stop answer", interview.StateListening); err != nil {
		o.mu.Unlock()
		return err
	}
	if o.starting || o.stopping {
		err := newTransitionError("stop answer", o.state)
		o.lastErr = err
		o.queue(events.NewErrorRaised(events.ErrorKindInvalidStateTransition, o.questionIndex, err))
		o.mu.Unlock()
		return err
	}
	o.stopping = true
	turn, ctx := o.turn, o.ctx
	o.mu.Unlock()

	transcript, err := o.capture.Stop(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopping = false
	if o.cancelled {
		return ErrSessionCancelled
	}
	if o.turn != turn || o.state != interview.StateListening {
		return nil
	}
	if err != nil {
		logger.Warn("capture did not stop cleanly, evaluating empty transcript", "error", err)
		transcript = ""
	}

	o.announceListening()
	o.queue(events.NewAnswerCaptureEnded(o.questionIndex, transcript))
	o.startEvaluation(transcript)
	return nil
}

// AskNext asks the question following the last recorded answer.
func (o *Orchestrator) AskNext() error {
	err := o.askNext()
	o.flush()
	return err
}

func (o *Orchestrator) askNext() error {
	o.mu.Lock()
	if err := o.guard("ask next", interview.StateReadyForNext); err != nil {
		o.mu.Unlock()
		return err
	}
	turn := o.enterAsking(true)
	question := o.session.Questions[o.questionIndex]
	ctx := o.ctx
	o.mu.Unlock()

	o.speak(ctx, turn, question)
	return nil
}

// RepeatQuestion speaks the current question again before recording starts.
// The answer time keeps counting from the first time it was asked.
func (o *Orchestrator) RepeatQuestion() error {
	err := o.repeatQuestion()
	o.flush()
	return err
}

func (o *Orchestrator) repeatQuestion() error {
	o.mu.Lock()
	if err := o.guard("repeat question", interview.StateReadyToRecord); err != nil {
		o.mu.Unlock()
		return err
	}
	turn := o.enterAsking(false)
	question := o.session.Questions[o.questionIndex]
	ctx := o.ctx
	o.mu.Unlock()

	o.speak(ctx, turn, question)
	return nil
}

// Cancel abandons the session. Speech is stopped, an active capture is
// discarded and an in-flight evaluation is aborted; nothing more is
// recorded.
func (o *Orchestrator) Cancel() error {
	err := o.cancel()
	o.flush()
	return err
}

func (o *Orchestrator) cancel() error {
	o.mu.Lock()
	if err := o.guard("cancel", allStates...); err != nil {
		o.mu.Unlock()
		return err
	}
	o.cancelled = true
	o.stopping = false
	o.turn++
	state := o.state
	o.queue(events.NewSessionCancelled(state, o.questionIndex))
	o.finish()
	o.mu.Unlock()

	var errs []error
	if err := o.output.Cancel(); err != nil {
		errs = append(errs, fmt.Errorf("failed to cancel speech output: %w", err))
	}
	if state == interview.StateListening {
		if err := o.capture.Cancel(); err != nil {
			errs = append(errs, fmt.Errorf("failed to cancel capture: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("session cancelled with errors", "error", err)
	}
	return nil
}

func (o *Orchestrator) watchContext(ctx context.Context, done <-chan struct{}) {
	select {
	case <-ctx.Done():
	case <-done:
		return
	}

	// ctx is also cancelled when the session finishes on its own
	select {
	case <-done:
		return
	default:
	}
	if err := o.Cancel(); err != nil && !errors.Is(err, ErrSessionCancelled) {
		logger.Debug("failed to cancel session after context ended", "error", err)
	}
}

var allStates = []interview.State{
	interview.StateIdle,
	interview.StateAsking,
	interview.StateReadyToRecord,
	interview.StateListening,
	interview.StateEvaluating,
	interview.StateReadyForNext,
}

// guard rejects operations not permitted in the current state and reports
// them. Must be called with mu held.
func (o *Orchestrator) guard(operation string, allowed ...interview.State) error {
	if o.cancelled {
		return ErrSessionCancelled
	}

	var (
		err  error
		kind events.ErrorKind
	)
	switch {
	case o.state == interview.StateComplete:
		err, kind = ErrAlreadyComplete, events.ErrorKindAlreadyComplete
	case !slices.Contains(allowed, o.state):
		err, kind = newTransitionError(operation, o.state), events.ErrorKindInvalidStateTransition
	default:
		return nil
	}

	o.lastErr = err
	o.queue(events.NewErrorRaised(kind, o.questionIndex, err))
	return err
}

// enterAsking must be called with mu held.
func (o *Orchestrator) enterAsking(resetTimer bool) uint64 {
	o.state = interview.StateAsking
	o.turn++
	if resetTimer {
		o.askedAt = o.now()
	}
	o.queue(events.NewStateChanged(o.state, o.questionIndex))
	return o.turn
}

func (o *Orchestrator) speak(ctx context.Context, turn uint64, question interview.Question) {
	err := o.output.Speak(ctx, question.Text, speech.OutputCallbacks{
		OnStarted: func() { o.onSpeechStarted(turn, question) },
		OnEnded:   func() { o.onSpeechEnded(turn, question) },
	})
	if err != nil {
		o.onSpeechFailed(turn, question, err)
	}
}

func (o *Orchestrator) onSpeechStarted(turn uint64, question interview.Question) {
	o.mu.Lock()
	if o.turn == turn && o.state == interview.StateAsking {
		o.queue(events.NewQuestionSpeechStarted(question.Index, question.Text))
	}
	o.mu.Unlock()
	o.flush()
}

func (o *Orchestrator) onSpeechEnded(turn uint64, question interview.Question) {
	o.mu.Lock()
	if o.turn == turn && o.state == interview.StateAsking {
		o.queue(events.NewQuestionSpeechEnded(question.Index, question.Text))
		o.state = interview.StateReadyToRecord
		o.queue(events.NewStateChanged(o.state, o.questionIndex))
	}
	o.mu.Unlock()
	o.flush()
}

// onSpeechFailed leaves the question on screen and lets the candidate answer
// anyway.
func (o *Orchestrator) onSpeechFailed(turn uint64, question interview.Question, err error) {
	o.mu.Lock()
	if o.turn == turn && o.state == interview.StateAsking {
		o.state = interview.StateReadyToRecord
		o.lastErr = err
		o.queue(events.NewStateChanged(o.state, o.questionIndex))
		o.queue(events.NewErrorRaised(events.ErrorKindSpeechUnavailable, question.Index, err))
	}
	o.mu.Unlock()
	o.flush()
}

// onCaptureEnded handles a capture the recognizer ended on its own.
func (o *Orchestrator) onCaptureEnded(turn uint64, transcript string) {
	o.mu.Lock()
	if o.turn == turn && o.state == interview.StateListening && !o.stopping {
		o.announceListening()
		o.queue(events.NewAnswerCaptureEnded(o.questionIndex, transcript))
		o.startEvaluation(transcript)
	}
	o.mu.Unlock()
	o.flush()
}

// announceListening must be called with mu held.
func (o *Orchestrator) announceListening() {
	if o.announced {
		return
	}
	o.announced = true
	o.queue(events.NewStateChanged(interview.StateListening, o.questionIndex))
	o.queue(events.NewAnswerCaptureStarted(o.questionIndex))
}

// startEvaluation must be called with mu held.
func (o *Orchestrator) startEvaluation(transcript string) {
	o.state = interview.StateEvaluating
	o.turn++
	o.queue(events.NewStateChanged(o.state, o.questionIndex))

	question := o.session.Questions[o.questionIndex]
	req := evaluation.Request{
		SessionID:      o.session.ID,
		QuestionIndex:  question.Index,
		Question:       question.Text,
		Transcript:     transcript,
		JobDescription: o.session.JobDescription,
	}
	go o.evaluate(o.ctx, o.turn, req)
}

func (o *Orchestrator) evaluate(ctx context.Context, turn uint64, req evaluation.Request) {
	ctx, span := tracer.Start(ctx, "evaluate answer")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", req.SessionID),
		attribute.Int("question.index", req.QuestionIndex),
	)

	result, err := o.evaluateWithRetries(ctx, turn, req)
	if ctx.Err() != nil {
		// cancelled, nothing is recorded
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		evaluationFailures.Add(ctx, 1)
	}

	o.recordAnswer(turn, req, result, err)
	o.flush()
}

func (o *Orchestrator) evaluateWithRetries(ctx context.Context, turn uint64, req evaluation.Request) (interview.Evaluation, error) {
	if o.evaluator == nil {
		return interview.Unscored(), evaluation.Failed(errNoEvaluator)
	}

	var lastErr error
	for attempt := 1; attempt <= o.retryPolicy.attempts(); attempt++ {
		if attempt > 1 {
			delay := o.retryPolicy.delay(attempt - 1)
			o.queueForTurn(turn, events.NewEvaluationRetrying(req.QuestionIndex, attempt, lastErr, delay))
			o.flush()
			if err := sleep(ctx, delay); err != nil {
				return interview.Unscored(), err
			}
		}

		o.queueForTurn(turn, events.NewEvaluationStarted(req.QuestionIndex, attempt))
		o.flush()
		evaluationAttempts.Add(ctx, 1, metric.WithAttributes(attribute.Int("attempt", attempt)))

		result, err := o.attempt(ctx, req)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return interview.Unscored(), ctx.Err()
		}
		lastErr = err
		logger.Warn("evaluation attempt failed", "question_index", req.QuestionIndex, "attempt", attempt, "error", err)
	}
	return interview.Unscored(), lastErr
}

func (o *Orchestrator) attempt(ctx context.Context, req evaluation.Request) (interview.Evaluation, error) {
	if o.retryPolicy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.retryPolicy.AttemptTimeout)
		defer cancel()
	}

	result, err := o.evaluator.Evaluate(ctx, req)
	if err != nil {
		return interview.Evaluation{}, evaluation.Failed(err)
	}
	return result, nil
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recordAnswer appends the answer and advances to the next question, or
// completes the session after the last one. A failed evaluation is recorded
// as unscored.
func (o *Orchestrator) recordAnswer(turn uint64, req evaluation.Request, result interview.Evaluation, evaluationErr error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.turn != turn || o.state != interview.StateEvaluating || o.cancelled {
		return
	}

	if evaluationErr != nil {
		result = interview.Unscored()
	} else {
		// a successful evaluation is always scored
		result.Unscored = false
		o.queue(events.NewEvaluationCompleted(req.QuestionIndex, result))
	}

	now := o.now()
	answer := interview.Answer{
		QuestionIndex: req.QuestionIndex,
		Question:      req.Question,
		Transcript:    req.Transcript,
		Evaluation:    result,
		Elapsed:       now.Sub(o.askedAt),
		RecordedAt:    now,
	}
	if err := o.ledger.Append(answer); err != nil {
		// unreachable while the pointer and the ledger agree
		logger.Error("failed to record answer", "question_index", req.QuestionIndex, "error", err)
		o.lastErr = err
		o.queue(events.NewErrorRaised(events.ErrorKindOutOfOrderAppend, req.QuestionIndex, err))
		return
	}
	answerDuration.Record(context.Background(), answer.Elapsed.Seconds(),
		metric.WithAttributes(attribute.Bool("scored", !result.Unscored)))
	o.queue(events.NewAnswerRecorded(answer))

	o.questionIndex++
	o.turn++
	o.state = interview.StateReadyForNext
	o.queue(events.NewStateChanged(o.state, o.questionIndex))
	if evaluationErr != nil {
		o.lastErr = evaluationErr
		o.queue(events.NewErrorRaised(events.ErrorKindEvaluationFailed, req.QuestionIndex, evaluationErr))
	}

	if o.questionIndex == o.session.QuestionCount() {
		o.complete(now)
	}
}

// complete must be called with mu held.
func (o *Orchestrator) complete(now time.Time) {
	o.state = interview.StateComplete
	o.session.Completed = true
	o.session.TotalElapsed = now.Sub(o.session.StartedAt)
	o.ledger.Freeze()

	o.queue(events.NewStateChanged(o.state, o.questionIndex))
	o.queue(events.NewSessionCompleted(o.session.ID, o.ledger.Entries(), o.ledger.Aggregate(), o.session.TotalElapsed))
	o.finish()
}

// finish must be called with mu held.
func (o *Orchestrator) finish() {
	o.doneOnce.Do(func() { close(o.done) })
	if o.cancelCtx != nil {
		o.cancelCtx()
	}
}

// queue must be called with mu held.
func (o *Orchestrator) queue(event events.Event) {
	o.pending = append(o.pending, event)
}

func (o *Orchestrator) queueForTurn(turn uint64, event events.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.turn == turn && !o.cancelled {
		o.queue(event)
	}
}

// flush delivers queued events. Events queued while another goroutine is
// delivering are picked up by that goroutine.
func (o *Orchestrator) flush() {
	o.mu.Lock()
	if o.dispatching {
		o.mu.Unlock()
		return
	}
	o.dispatching = true
	for len(o.pending) > 0 {
		batch := o.pending
		o.pending = nil
		emit := o.emit
		o.mu.Unlock()

		for _, event := range batch {
			emit(event)
		}

		o.mu.Lock()
	}
	o.dispatching = false
	o.mu.Unlock()
}

func (o *Orchestrator) State() interview.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// QuestionIndex is the index of the question being asked or answered. Once
// an answer is recorded it points at the next question, so it always equals
// the number of recorded answers outside of a turn.
func (o *Orchestrator) QuestionIndex() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.questionIndex
}

// Session returns a copy of the session.
func (o *Orchestrator) Session() interview.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Clone()
}

func (o *Orchestrator) Answers() []interview.Answer { return o.ledger.Entries() }

func (o *Orchestrator) Aggregate() interview.Aggregate { return o.ledger.Aggregate() }

func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Orchestrator) IsCancelled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

// Done is closed once the session is complete or cancelled.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }
