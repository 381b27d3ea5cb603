package speech

import (
	"context"
	"errors"
	"testing"
)

func TestTextCaptureStop(t *testing.T) {
	capture := NewTextCapture()
	if err := capture.Write("ignored"); !errors.Is(err, ErrNotCapturing) {
		t.Fatalf("expected ErrNotCapturing before start, got %v", err)
	}

	if err := capture.Start(context.Background(), CaptureCallbacks{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := capture.Start(context.Background(), CaptureCallbacks{}); !errors.Is(err, ErrCaptureActive) {
		t.Fatalf("expected ErrCaptureActive, got %v", err)
	}

	_ = capture.Write(" first part ")
	_ = capture.Write("   ")
	_ = capture.Write("second part")

	transcript, err := capture.Stop(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if transcript != "first part second part" {
		t.Fatalf("expected joined transcript, got %q", transcript)
	}
	if _, err := capture.Stop(context.Background()); !errors.Is(err, ErrNotCapturing) {
		t.Fatalf("expected ErrNotCapturing after stop, got %v", err)
	}
}

func TestTextCaptureSubmitEndsCapture(t *testing.T) {
	capture := NewTextCapture()
	ended := make(chan string, 1)
	_ = capture.Start(context.Background(), CaptureCallbacks{
		OnEnded: func(transcript string) { ended <- transcript },
	})

	_ = capture.Write("Hello")
	if err := capture.Submit("world"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	select {
	case transcript := <-ended:
		if transcript != "Hello world" {
			t.Fatalf("expected submitted transcript, got %q", transcript)
		}
	default:
		t.Fatalf("expected OnEnded to fire synchronously")
	}

	if err := capture.Start(context.Background(), CaptureCallbacks{}); err != nil {
		t.Fatalf("expected capture to be startable again, got %v", err)
	}
}
