// Package speechtotext defines the options a streaming recognizer accepts
// when transcribing a spoken answer.
package speechtotext

import "github.com/koscakluka/ema-interview/core/audio"

// TranscriptionOptions are collected from TranscriptionOption values by a
// recognizer before it opens a stream. Unset callbacks are not called.
type TranscriptionOptions struct {
	EncodingInfo audio.EncodingInfo

	// Final results. PartialTranscriptionCallback receives each finalized
	// segment; TranscriptionCallback receives the whole utterance once the
	// speaker pauses.
	PartialTranscriptionCallback func(segment string)
	TranscriptionCallback        func(utterance string)

	// Interim results may still change. Asking for them makes the recognizer
	// request interim results from the service.
	PartialInterimTranscriptionCallback func(segment string)
	InterimTranscriptionCallback        func(utterance string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	// StreamClosedCallback fires once, after every pending result has been
	// delivered. err is nil when the stream was closed on request.
	StreamClosedCallback func(err error)
}

type TranscriptionOption func(*TranscriptionOptions)

// WithEncodingInfo describes the audio that will be sent. Incomplete
// encodings are ignored.
func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if !encodingInfo.IsZero() {
			o.EncodingInfo = encodingInfo
		}
	}
}

func WithPartialTranscriptionCallback(callback func(segment string)) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.PartialTranscriptionCallback = callback }
}

func WithTranscriptionCallback(callback func(utterance string)) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.TranscriptionCallback = callback }
}

func WithPartialInterimTranscriptionCallback(callback func(segment string)) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.PartialInterimTranscriptionCallback = callback }
}

func WithInterimTranscriptionCallback(callback func(utterance string)) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.InterimTranscriptionCallback = callback }
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.SpeechStartedCallback = callback }
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.SpeechEndedCallback = callback }
}

func WithStreamClosedCallback(callback func(err error)) TranscriptionOption {
	return func(o *TranscriptionOptions) { o.StreamClosedCallback = callback }
}
