package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-interview/core/texttospeech"
)

type OutputOption func(*SpeechOutput)

func WithTextToSpeech(client TextToSpeech) OutputOption {
	return func(o *SpeechOutput) { o.tts = client }
}

func WithAudioOutputV0(client AudioOutputV0) OutputOption {
	return func(o *SpeechOutput) { o.audioOutput.Set(client) }
}

func WithAudioOutputV1(client AudioOutputV1) OutputOption {
	return func(o *SpeechOutput) { o.audioOutput.Set(client) }
}

// SpeechOutput speaks questions through a streaming speech generator and an
// audio device.
//
// Without a speech generator it runs in text-only mode: every utterance
// starts and ends immediately. Without an audio device the utterance ends
// once generation ends.
type SpeechOutput struct {
	tts         TextToSpeech
	audioOutput *audioOutput

	mu         sync.Mutex
	generation uint64
	active     texttospeech.SpeechGeneratorV0
}

func NewOutput(opts ...OutputOption) *SpeechOutput {
	output := &SpeechOutput{audioOutput: newAudioOutput(nil)}
	for _, opt := range opts {
		opt(output)
	}
	return output
}

// IsTextOnly reports whether utterances are skipped because no speech
// generator is configured.
func (o *SpeechOutput) IsTextOnly() bool {
	return o.tts == nil
}

func (o *SpeechOutput) Speak(ctx context.Context, text string, callbacks OutputCallbacks) error {
	ctx, span := tracer.Start(ctx, "speak")
	defer span.End()

	onStarted, onEnded := callbacks.OnStarted, callbacks.OnEnded
	if onStarted == nil {
		onStarted = func() {}
	}
	if onEnded == nil {
		onEnded = func() {}
	}

	previous, generation := o.supersede()
	o.stop(previous)

	if o.tts == nil {
		onStarted()
		onEnded()
		return nil
	}

	var endOnce sync.Once
	end := func() {
		endOnce.Do(func() {
			if o.release(generation) {
				onEnded()
			}
		})
	}

	generator, err := o.tts.NewSpeechGeneratorV0(ctx,
		texttospeech.WithEncodingInfo(o.audioOutput.EncodingInfo()),
		texttospeech.WithSpeechAudioCallback(func(audio []byte) {
			if o.isCurrent(generation) {
				o.audioOutput.SendAudio(audio)
			}
		}),
		texttospeech.WithSpeechEndedCallbackV0(func(texttospeech.SpeechEndedReport) {
			if o.isCurrent(generation) {
				o.audioOutput.Mark(fmt.Sprintf("utterance-%d", generation), func(string) { end() })
			}
		}),
		texttospeech.WithErrorCallback(func(err error) {
			if o.isCurrent(generation) {
				logger.Warn("speech generation failed mid utterance", "error", err)
				end()
			}
		}),
	)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSpeechUnavailable, err)
		span.RecordError(err)
		return err
	}

	if !o.activate(generation, generator) {
		// superseded while connecting
		_ = generator.Close()
		return nil
	}

	if err := generator.SendText(text); err != nil {
		o.release(generation)
		_ = generator.Close()
		err = fmt.Errorf("%w: %w", ErrSpeechUnavailable, err)
		span.RecordError(err)
		return err
	}

	onStarted()

	if err := generator.EndOfText(); err != nil {
		logger.Warn("failed to finish utterance", "error", err)
		end()
	}

	return nil
}

// Cancel stops the active utterance. Its callbacks will not fire.
func (o *SpeechOutput) Cancel() error {
	previous, _ := o.supersede()
	return o.stop(previous)
}

func (o *SpeechOutput) supersede() (texttospeech.SpeechGeneratorV0, uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	previous := o.active
	o.active = nil
	o.generation++
	return previous, o.generation
}

func (o *SpeechOutput) stop(generator texttospeech.SpeechGeneratorV0) error {
	o.audioOutput.Clear()
	if generator == nil {
		return nil
	}
	if err := generator.Cancel(); err != nil {
		return fmt.Errorf("failed to cancel utterance: %w", err)
	}
	return nil
}

func (o *SpeechOutput) activate(generation uint64, generator texttospeech.SpeechGeneratorV0) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation != generation {
		return false
	}
	o.active = generator
	return true
}

// release clears the active utterance if it is still generation and reports
// whether it was.
func (o *SpeechOutput) release(generation uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation != generation {
		return false
	}
	o.active = nil
	return true
}

func (o *SpeechOutput) isCurrent(generation uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation == generation
}
