package speech

import (
	"reflect"

	"github.com/koscakluka/ema-interview/core/audio"
)

// audioOutput normalizes legacy (v0) and callback-mark (v1) clients behind
// one facade used for question playback.
//
// Methods do best-effort forwarding. Playback failures are logged and never
// block the interview, which can always fall back to showing the question.
type audioOutput struct {
	// v0 is set when the output client supports the legacy mark-wait API.
	v0 AudioOutputV0
	// v1 is set when the output client supports callback-based mark handling.
	v1 AudioOutputV1
}

func newAudioOutput(client audioOutputBase) *audioOutput {
	audioOutput := audioOutput{}
	audioOutput.Set(client)
	return &audioOutput
}

// Set replaces the configured output client. Nil and typed-nil clients are
// treated as unconfigured.
func (a *audioOutput) Set(client audioOutputBase) {
	if a == nil {
		return
	}

	a.v0 = nil
	a.v1 = nil

	if isNilAudioOutputBase(client) {
		return
	}

	if v1, ok := client.(AudioOutputV1); ok {
		a.v1 = v1
		return
	}

	if v0, ok := client.(AudioOutputV0); ok {
		a.v0 = v0
	}
}

func (a *audioOutput) isConfigured() bool {
	return a != nil && (a.v0 != nil || a.v1 != nil)
}

// SendAudio forwards a chunk to the configured output client. Without a
// client the chunk is dropped.
func (a *audioOutput) SendAudio(audio []byte) {
	var err error
	if a.v1 != nil {
		err = a.v1.SendAudio(audio)
	} else if a.v0 != nil {
		err = a.v0.SendAudio(audio)
	}
	if err != nil {
		logger.Debug("failed to send audio to output", "error", err)
	}
}

// Mark calls callback once everything sent so far has played.
//
// For v0 clients the blocking AwaitMark is bridged to a callback. Without an
// output configured the callback is invoked immediately.
func (a *audioOutput) Mark(mark string, callback func(string)) {
	if a.v1 != nil {
		if err := a.v1.Mark(mark, callback); err != nil {
			logger.Warn("failed to mark audio output, ending playback early", "error", err)
			callback(mark)
		}
	} else if a.v0 != nil {
		go func() {
			if err := a.v0.AwaitMark(); err != nil {
				logger.Warn("failed to await audio output mark", "error", err)
			}
			callback(mark)
		}()
	} else {
		callback(mark)
	}
}

// Clear flushes buffered output on the configured client.
func (a *audioOutput) Clear() {
	if a.v1 != nil {
		a.v1.ClearBuffer()
	} else if a.v0 != nil {
		a.v0.ClearBuffer()
	}
}

// EncodingInfo returns the output encoding, or the project default when no
// client is configured.
func (a *audioOutput) EncodingInfo() audio.EncodingInfo {
	if a.v1 != nil {
		return a.v1.EncodingInfo()
	}
	if a.v0 != nil {
		return a.v0.EncodingInfo()
	}

	return audio.GetDefaultEncodingInfo()
}

// isNilAudioOutputBase detects nil and typed-nil interface values so Set can
// avoid storing unusable interface wrappers as configured clients.
func isNilAudioOutputBase(client audioOutputBase) bool {
	if client == nil {
		return true
	}

	v := reflect.ValueOf(client)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
