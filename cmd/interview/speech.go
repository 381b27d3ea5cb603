package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/audio/miniaudio"
	"github.com/koscakluka/ema-interview/core/audio/portaudio"
	"github.com/koscakluka/ema-interview/core/speech"
	sttdeepgram "github.com/koscakluka/ema-interview/core/speechtotext/deepgram"
	ttsdeepgram "github.com/koscakluka/ema-interview/core/texttospeech/deepgram"
)

// speechDevices is the speech setup of one run. typed is set when answers
// are typed rather than spoken.
type speechDevices struct {
	output  speech.Output
	capture speech.Capture
	typed   *speech.TextCapture
	close   func()
}

func (d speechDevices) Close() {
	if d.close != nil {
		d.close()
	}
}

func textOnly() speechDevices {
	typed := speech.NewTextCapture()
	return speechDevices{output: speech.NewOutput(), capture: typed, typed: typed}
}

// newSpeech speaks and listens through Deepgram and an audio device when
// both are available and falls back to text otherwise.
func newSpeech(ctx context.Context, v *viper.Viper) (speechDevices, error) {
	backend := v.GetString("audio")
	if backend == "none" {
		return textOnly(), nil
	}

	var deepgramOpts []sttdeepgram.ClientOption
	var voiceOpts []ttsdeepgram.ClientOption
	if apiKey := v.GetString("deepgram-api-key"); apiKey != "" {
		deepgramOpts = append(deepgramOpts, sttdeepgram.WithAPIKey(apiKey))
		voiceOpts = append(voiceOpts, ttsdeepgram.WithAPIKey(apiKey))
	}
	stt, err := sttdeepgram.NewTranscriptionClient(deepgramOpts...)
	if err != nil {
		slog.Info("speech recognition unavailable, answers will be typed", "error", err)
		return textOnly(), nil
	}

	var (
		outputOpts  []speech.OutputOption
		captureOpts = []speech.CaptureOption{speech.WithSpeechToText(stt)}
		encoding    audio.EncodingInfo
		closeDevice func()
	)
	switch backend {
	case "miniaudio":
		device, err := miniaudio.NewClient()
		if err != nil {
			return speechDevices{}, fmt.Errorf("open audio devices: %w", err)
		}
		outputOpts = append(outputOpts, speech.WithAudioOutputV1(device))
		captureOpts = append(captureOpts, speech.WithAudioInput(device))
		encoding, closeDevice = device.EncodingInfo(), device.Close
	case "portaudio":
		device, err := portaudio.NewClient(portaudio.DefaultBufferSize)
		if err != nil {
			return speechDevices{}, fmt.Errorf("open audio devices: %w", err)
		}
		outputOpts = append(outputOpts, speech.WithAudioOutputV0(device))
		captureOpts = append(captureOpts, speech.WithAudioInput(device))
		encoding, closeDevice = device.EncodingInfo(), device.Close
	default:
		return speechDevices{}, fmt.Errorf("unknown audio backend %q", backend)
	}

	voiceOpts = append(voiceOpts, ttsdeepgram.WithEncodingInfo(encoding))
	tts, err := ttsdeepgram.NewTextToSpeechClient(ctx, ttsdeepgram.Voice(v.GetString("voice")), voiceOpts...)
	if err != nil {
		// questions are still shown on screen
		slog.Warn("speech synthesis unavailable", "error", err)
	} else {
		outputOpts = append(outputOpts, speech.WithTextToSpeech(tts))
	}

	return speechDevices{
		output:  speech.NewOutput(outputOpts...),
		capture: speech.NewCapture(captureOpts...),
		close:   closeDevice,
	}, nil
}
