package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/koscakluka/ema-interview/core/speechtotext"
)

const DefaultStopGracePeriod = 750 * time.Millisecond

type CaptureOption func(*SpeechCapture)

func WithSpeechToText(client SpeechToText) CaptureOption {
	return func(c *SpeechCapture) { c.stt = client }
}

func WithAudioInput(client AudioInput) CaptureOption {
	return func(c *SpeechCapture) { c.audioInput.Set(client) }
}

// WithStopGracePeriod bounds how long Stop waits for the recognizer to
// deliver trailing results.
func WithStopGracePeriod(gracePeriod time.Duration) CaptureOption {
	return func(c *SpeechCapture) {
		if gracePeriod >= 0 {
			c.stopGracePeriod = gracePeriod
		}
	}
}

// SpeechCapture transcribes an answer with a streaming recognizer fed by an
// audio device. Without an audio device the host is expected to feed audio
// through SendAudio.
type SpeechCapture struct {
	stt             SpeechToText
	audioInput      *audioInput
	stopGracePeriod time.Duration

	mu     sync.Mutex
	active *captureSession
}

type captureSession struct {
	callbacks CaptureCallbacks
	cancel    context.CancelFunc

	segments []string
	interim  string

	stopping  bool
	cancelled bool
	// ended is set when the recognizer closed the stream on its own.
	ended bool

	closed    chan struct{}
	closeOnce sync.Once
}

func (s *captureSession) transcript() string {
	parts := make([]string, 0, len(s.segments)+1)
	parts = append(parts, s.segments...)
	if s.interim != "" {
		parts = append(parts, s.interim)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (s *captureSession) markClosed() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func NewCapture(opts ...CaptureOption) *SpeechCapture {
	capture := &SpeechCapture{
		audioInput:      newAudioInput(nil),
		stopGracePeriod: DefaultStopGracePeriod,
	}
	for _, opt := range opts {
		opt(capture)
	}
	return capture
}

func (c *SpeechCapture) Start(ctx context.Context, callbacks CaptureCallbacks) error {
	ctx, span := tracer.Start(ctx, "start capture")
	defer span.End()

	if c.stt == nil {
		return fmt.Errorf("%w: no speech recognizer configured", ErrCaptureUnavailable)
	}

	c.mu.Lock()
	if c.active != nil && !c.active.ended {
		c.mu.Unlock()
		return ErrCaptureActive
	}

	// the capture outlives the Start call, only explicit cancellation of
	// the parent ends it early
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	session := &captureSession{
		callbacks: callbacks,
		cancel:    cancel,
		closed:    make(chan struct{}),
	}
	c.active = session
	c.mu.Unlock()

	err := c.stt.Transcribe(streamCtx,
		speechtotext.WithEncodingInfo(c.audioInput.EncodingInfo()),
		speechtotext.WithPartialInterimTranscriptionCallback(func(segment string) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.active == session && !session.cancelled {
				session.interim = segment
			}
		}),
		speechtotext.WithPartialTranscriptionCallback(func(segment string) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.active == session && !session.cancelled {
				session.segments = append(session.segments, segment)
				session.interim = ""
			}
		}),
		speechtotext.WithStreamClosedCallback(func(err error) {
			c.onStreamClosed(session, err)
		}),
	)
	if err != nil {
		c.abandon(session)
		err = fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
		span.RecordError(err)
		return err
	}

	if err := c.audioInput.Start(streamCtx, c.forwardAudio, func(err error) {
		c.onStreamClosed(session, err)
	}); err != nil {
		c.abandon(session)
		closeSpeechToText(c.stt)
		err = fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
		span.RecordError(err)
		return err
	}

	if callbacks.OnStarted != nil {
		callbacks.OnStarted()
	}
	return nil
}

// SendAudio feeds audio for hosts that capture audio themselves.
func (c *SpeechCapture) SendAudio(audio []byte) error {
	c.mu.Lock()
	capturing := c.active != nil && !c.active.stopping && !c.active.cancelled && !c.active.ended
	c.mu.Unlock()
	if !capturing {
		return ErrNotCapturing
	}

	return c.stt.SendAudio(audio)
}

func (c *SpeechCapture) forwardAudio(audio []byte) {
	if err := c.stt.SendAudio(audio); err != nil {
		logger.Debug("failed to forward audio to recognizer", "error", err)
	}
}

func (c *SpeechCapture) Stop(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "stop capture")
	defer span.End()

	c.mu.Lock()
	session := c.active
	if session == nil || session.cancelled {
		c.mu.Unlock()
		return "", ErrNotCapturing
	}
	session.stopping = true
	c.mu.Unlock()

	if err := c.audioInput.Stop(); err != nil {
		logger.Warn("failed to stop audio input", "error", err)
	}

	if stopper, ok := c.stt.(streamStopper); ok {
		if err := stopper.StopStream(); err != nil {
			logger.Warn("failed to request end of transcription stream", "error", err)
		} else {
			timer := time.NewTimer(c.stopGracePeriod)
			select {
			case <-session.closed:
			case <-timer.C:
				logger.Debug("transcription stream did not close within grace period")
			case <-ctx.Done():
			}
			timer.Stop()
		}
	}

	c.mu.Lock()
	transcript := session.transcript()
	if c.active == session {
		c.active = nil
	}
	c.mu.Unlock()

	session.cancel()
	closeSpeechToText(c.stt)

	return transcript, nil
}

func (c *SpeechCapture) Cancel() error {
	c.mu.Lock()
	session := c.active
	c.active = nil
	if session == nil {
		c.mu.Unlock()
		return nil
	}
	session.cancelled = true
	c.mu.Unlock()

	session.cancel()
	err := c.audioInput.Stop()
	closeSpeechToText(c.stt)
	return err
}

func (c *SpeechCapture) onStreamClosed(session *captureSession, err error) {
	c.mu.Lock()
	session.markClosed()
	if c.active != session || session.stopping || session.cancelled || session.ended {
		c.mu.Unlock()
		return
	}
	session.ended = true
	transcript := session.transcript()
	c.mu.Unlock()

	if err != nil {
		logger.Warn("transcription stream closed unexpectedly", "error", err)
	}
	if stopErr := c.audioInput.Stop(); stopErr != nil {
		logger.Debug("failed to stop audio input", "error", stopErr)
	}
	if session.callbacks.OnEnded != nil {
		session.callbacks.OnEnded(transcript)
	}
}

func (c *SpeechCapture) abandon(session *captureSession) {
	c.mu.Lock()
	if c.active == session {
		c.active = nil
	}
	session.cancelled = true
	c.mu.Unlock()
	session.cancel()
}

// closeSpeechToText closes recognizers that expose one of the common close
// signatures.
func closeSpeechToText(client SpeechToText) {
	var err error
	switch c := client.(type) {
	case interface{ Close(context.Context) error }:
		err = c.Close(context.Background())
	case interface{ Close() error }:
		err = c.Close()
	case interface{ Close() }:
		c.Close()
	}
	if err != nil {
		logger.Debug("failed to close speech-to-text client", "error", err)
	}
}
