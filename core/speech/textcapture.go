package speech

import (
	"context"
	"strings"
	"sync"
)

// TextCapture is a Capture fed with typed text, for hosts without a
// microphone or recognizer.
type TextCapture struct {
	mu        sync.Mutex
	active    bool
	parts     []string
	callbacks CaptureCallbacks
}

func NewTextCapture() *TextCapture {
	return &TextCapture{}
}

func (c *TextCapture) Start(_ context.Context, callbacks CaptureCallbacks) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return ErrCaptureActive
	}
	c.active = true
	c.parts = nil
	c.callbacks = callbacks
	c.mu.Unlock()

	if callbacks.OnStarted != nil {
		callbacks.OnStarted()
	}
	return nil
}

// Write appends text to the active capture.
func (c *TextCapture) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return ErrNotCapturing
	}
	if text = strings.TrimSpace(text); text != "" {
		c.parts = append(c.parts, text)
	}
	return nil
}

// Submit writes text and ends the capture as if the recognizer had closed
// the stream, so OnEnded fires with the full transcript.
func (c *TextCapture) Submit(text string) error {
	if err := c.Write(text); err != nil {
		return err
	}

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return ErrNotCapturing
	}
	c.active = false
	transcript := strings.Join(c.parts, " ")
	c.parts = nil
	onEnded := c.callbacks.OnEnded
	c.mu.Unlock()

	if onEnded != nil {
		onEnded(transcript)
	}
	return nil
}

func (c *TextCapture) Stop(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return "", ErrNotCapturing
	}
	c.active = false
	transcript := strings.Join(c.parts, " ")
	c.parts = nil
	return transcript, nil
}

func (c *TextCapture) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	c.parts = nil
	return nil
}
