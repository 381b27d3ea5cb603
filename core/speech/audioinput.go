package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-interview/core/audio"
)

// audioInput starts and stops microphone audio around a single capture.
// Clients with explicit capture controls are started synchronously so device
// failures surface to the caller; plain streaming clients run until their
// context is cancelled.
type audioInput struct {
	base audioInputBase
	// fineCaptureControl is set when the input client supports explicit
	// capture controls.
	fineCaptureControl AudioInputFine

	mu           sync.Mutex
	isCapturing  bool
	cancelStream context.CancelFunc
}

func newAudioInput(client audioInputBase) *audioInput {
	audioInput := audioInput{}
	audioInput.Set(client)
	return &audioInput
}

func (a *audioInput) Set(client audioInputBase) {
	if a == nil {
		return
	}

	a.base = nil
	a.fineCaptureControl = nil
	if client == nil {
		return
	}

	a.base = client
	if fine, ok := client.(AudioInputFine); ok {
		a.fineCaptureControl = fine
	}
}

func (a *audioInput) IsConfigured() bool { return a != nil && a.base != nil }

func (a *audioInput) IsCapturing() bool {
	if a == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isCapturing
}

// Start begins forwarding audio to onAudio. onStreamFailed is called when a
// streaming client fails after Start has returned.
func (a *audioInput) Start(ctx context.Context, onAudio func([]byte), onStreamFailed func(error)) error {
	if !a.IsConfigured() {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.isCapturing {
		return nil
	}

	if a.fineCaptureControl != nil {
		if err := a.fineCaptureControl.StartCapture(ctx, onAudio); err != nil {
			return fmt.Errorf("failed to start audio input: %w", err)
		}
		a.isCapturing = true
		return nil
	}

	streamCtx, cancel := context.WithCancel(ctx)
	a.cancelStream = cancel
	a.isCapturing = true
	go func() {
		if err := a.base.Stream(streamCtx, onAudio); err != nil {
			a.mu.Lock()
			a.isCapturing = false
			a.mu.Unlock()
			logger.Warn("audio input stream failed", "error", err)
			if onStreamFailed != nil {
				onStreamFailed(err)
			}
		}
	}()
	return nil
}

func (a *audioInput) Stop() error {
	if !a.IsConfigured() {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.isCapturing {
		return nil
	}
	a.isCapturing = false

	if a.cancelStream != nil {
		a.cancelStream()
		a.cancelStream = nil
	}
	if a.fineCaptureControl != nil {
		if err := a.fineCaptureControl.StopCapture(); err != nil {
			return fmt.Errorf("failed to stop audio input: %w", err)
		}
	}

	return nil
}

func (a *audioInput) EncodingInfo() audio.EncodingInfo {
	if !a.IsConfigured() {
		return audio.GetDefaultEncodingInfo()
	}

	return a.base.EncodingInfo()
}
