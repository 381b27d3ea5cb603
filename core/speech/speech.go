// Package speech turns streaming speech services and audio devices into the
// two turn-level operations an interview needs: speaking a question and
// capturing an answer.
package speech

import (
	"context"
	"errors"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/core/texttospeech"
)

var (
	// ErrSpeechUnavailable is returned when a question cannot be spoken.
	ErrSpeechUnavailable = errors.New("speech output unavailable")
	// ErrCaptureUnavailable is returned when capture cannot start. No
	// capture callbacks fire after it.
	ErrCaptureUnavailable = errors.New("speech capture unavailable")
	// ErrCaptureActive is returned when Start is called while a capture is
	// already running.
	ErrCaptureActive = errors.New("speech capture already active")
	ErrNotCapturing  = errors.New("speech capture not active")
)

type OutputCallbacks struct {
	OnStarted func()
	OnEnded   func()
}

// Output speaks one utterance at a time. Speak while an utterance is active
// cancels it first, and callbacks of a cancelled utterance never fire.
type Output interface {
	Speak(ctx context.Context, text string, callbacks OutputCallbacks) error
	Cancel() error
}

type CaptureCallbacks struct {
	OnStarted func()
	// OnEnded is called when the recognizer ends the capture on its own.
	// Captures ended through Stop or Cancel do not call it.
	OnEnded func(transcript string)
}

// Capture accumulates a transcript between Start and Stop.
type Capture interface {
	Start(ctx context.Context, callbacks CaptureCallbacks) error
	// Stop ends the capture and returns the transcript accumulated so far,
	// possibly empty.
	Stop(ctx context.Context) (string, error)
	// Cancel ends the capture without yielding text.
	Cancel() error
}

type TextToSpeech interface {
	NewSpeechGeneratorV0(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGeneratorV0, error)
}

type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
}

// streamStopper is implemented by recognizers that can flush pending results
// before closing.
type streamStopper interface {
	StopStream() error
}

type AudioInput interface {
	audioInputBase
}

type AudioInputFine interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

type AudioOutputV0 interface {
	audioOutputBase
	AwaitMark() error
}

type AudioOutputV1 interface {
	audioOutputBase
	Mark(string, func(string)) error
}

type audioOutputBase interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
	ClearBuffer()
}

type audioInputBase interface {
	EncodingInfo() audio.EncodingInfo
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
}
