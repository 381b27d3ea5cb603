package speech

import (
	"context"
	"errors"
	"sync"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/core/texttospeech"
)

type speechGeneratorStub struct {
	options texttospeech.TextToSpeechOptions
	autoEnd bool

	mu        sync.Mutex
	sent      []string
	cancelled bool
	closed    bool
}

func (g *speechGeneratorStub) SendText(text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, text)
	return nil
}

func (g *speechGeneratorStub) Mark() error { return nil }

func (g *speechGeneratorStub) EndOfText() error {
	if g.autoEnd {
		g.options.SpeechAudioCallback([]byte("audio"))
		g.options.SpeechEndedCallbackV0(texttospeech.SpeechEndedReport{})
	}
	return nil
}

func (g *speechGeneratorStub) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = true
	return nil
}

func (g *speechGeneratorStub) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func (g *speechGeneratorStub) isCancelled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelled
}

func (g *speechGeneratorStub) end() {
	g.options.SpeechEndedCallbackV0(texttospeech.SpeechEndedReport{})
}

type textToSpeechStub struct {
	autoEnd bool
	err     error

	mu         sync.Mutex
	generators []*speechGeneratorStub
}

func (s *textToSpeechStub) NewSpeechGeneratorV0(_ context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGeneratorV0, error) {
	if s.err != nil {
		return nil, s.err
	}

	generator := &speechGeneratorStub{autoEnd: s.autoEnd}
	for _, opt := range opts {
		opt(&generator.options)
	}

	s.mu.Lock()
	s.generators = append(s.generators, generator)
	s.mu.Unlock()
	return generator, nil
}

func (s *textToSpeechStub) generator(i int) *speechGeneratorStub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generators[i]
}

type audioOutputV1Stub struct {
	mu      sync.Mutex
	audio   [][]byte
	marks   []func(string)
	cleared int
}

func (a *audioOutputV1Stub) EncodingInfo() audio.EncodingInfo { return audio.GetDefaultEncodingInfo() }

func (a *audioOutputV1Stub) SendAudio(audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.audio = append(a.audio, audio)
	return nil
}

func (a *audioOutputV1Stub) ClearBuffer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cleared++
}

func (a *audioOutputV1Stub) Mark(mark string, callback func(string)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.marks = append(a.marks, func(string) { callback(mark) })
	return nil
}

func (a *audioOutputV1Stub) playMarks() {
	a.mu.Lock()
	marks := a.marks
	a.marks = nil
	a.mu.Unlock()
	for _, mark := range marks {
		mark("")
	}
}

type speechToTextStub struct {
	transcribeErr error
	// trailing is delivered as a final segment when the stream is stopped
	trailing string
	// closeOnStop makes StopStream close the stream after trailing results
	closeOnStop bool

	mu      sync.Mutex
	options speechtotext.TranscriptionOptions
	audio   [][]byte
	closes  int
	stops   int
}

func (s *speechToTextStub) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	if s.transcribeErr != nil {
		return s.transcribeErr
	}

	options := speechtotext.TranscriptionOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	s.mu.Lock()
	s.options = options
	s.mu.Unlock()
	return nil
}

func (s *speechToTextStub) SendAudio(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, audio)
	return nil
}

func (s *speechToTextStub) StopStream() error {
	s.mu.Lock()
	s.stops++
	options := s.options
	s.mu.Unlock()

	if s.closeOnStop {
		go func() {
			if s.trailing != "" {
				options.PartialTranscriptionCallback(s.trailing)
			}
			options.StreamClosedCallback(nil)
		}()
	}
	return nil
}

func (s *speechToTextStub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *speechToTextStub) callbacks() speechtotext.TranscriptionOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

type audioInputFineStub struct {
	startErr error

	mu        sync.Mutex
	onAudio   func([]byte)
	capturing bool
}

func (a *audioInputFineStub) EncodingInfo() audio.EncodingInfo { return audio.GetDefaultEncodingInfo() }

func (a *audioInputFineStub) Stream(ctx context.Context, onAudio func([]byte)) error {
	return errors.New("stream not supported by stub")
}

func (a *audioInputFineStub) Close() {}

func (a *audioInputFineStub) StartCapture(_ context.Context, onAudio func([]byte)) error {
	if a.startErr != nil {
		return a.startErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onAudio = onAudio
	a.capturing = true
	return nil
}

func (a *audioInputFineStub) StopCapture() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.capturing = false
	return nil
}

func (a *audioInputFineStub) isCapturing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.capturing
}

func (a *audioInputFineStub) emit(audio []byte) {
	a.mu.Lock()
	onAudio := a.onAudio
	a.mu.Unlock()
	onAudio(audio)
}
