// Package texttospeech defines the streaming speech generator a question is
// spoken through.
package texttospeech

import "github.com/koscakluka/ema-interview/core/audio"

// TextToSpeechOptions are collected by a speech client when a generator is
// created. Clients replace unset callbacks with no-ops.
type TextToSpeechOptions struct {
	EncodingInfo audio.EncodingInfo

	// SpeechAudioCallback receives synthesized audio in order.
	SpeechAudioCallback func(audio []byte)
	// SpeechMarkCallback fires once per Mark, after the audio for the text
	// sent before the mark has been delivered.
	SpeechMarkCallback func(string)
	// SpeechEndedCallbackV0 fires once all audio for the text sent before
	// EndOfText has been delivered.
	SpeechEndedCallbackV0 func(SpeechEndedReport)
	// ErrorCallback fires when generation fails or is cancelled. No audio
	// follows it.
	ErrorCallback func(error)
}

type TextToSpeechOption func(*TextToSpeechOptions)

func WithSpeechAudioCallback(callback func([]byte)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) { o.SpeechAudioCallback = callback }
}

func WithSpeechMarkCallback(callback func(string)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) { o.SpeechMarkCallback = callback }
}

func WithSpeechEndedCallbackV0(callback func(SpeechEndedReport)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) { o.SpeechEndedCallbackV0 = callback }
}

func WithErrorCallback(callback func(error)) TextToSpeechOption {
	return func(o *TextToSpeechOptions) { o.ErrorCallback = callback }
}

// WithEncodingInfo requests audio in the given encoding, normally the one
// the playback device expects. Incomplete encodings are ignored.
func WithEncodingInfo(encodingInfo audio.EncodingInfo) TextToSpeechOption {
	return func(o *TextToSpeechOptions) {
		if !encodingInfo.IsZero() {
			o.EncodingInfo = encodingInfo
		}
	}
}

// SpeechGeneratorV0 turns one question into audio. Text is spoken in the
// order it is sent.
type SpeechGeneratorV0 interface {
	SendText(string) error
	// Mark requests a SpeechMarkCallback once the text sent so far has been
	// spoken.
	Mark() error
	// EndOfText tells the generator no more text follows. The generator
	// closes itself once the remaining audio has been delivered. Repeated
	// calls are ignored.
	EndOfText() error
	// Cancel stops generation and closes the generator. No callbacks fire
	// afterwards.
	Cancel() error
	// Close releases the generator immediately. Repeated calls are ignored.
	Close() error
}

// SpeechEndedReport describes a finished generation. Text is everything that
// was sent before EndOfText.
type SpeechEndedReport struct {
	Text string
}
