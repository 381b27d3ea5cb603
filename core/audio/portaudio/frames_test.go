package portaudio

import (
	"bytes"
	"testing"
)

func TestFrameQueueKeepsRemainderUntilDrained(t *testing.T) {
	queue := frameQueue{frameSize: 4}

	frames := queue.Push([]byte{1, 2, 3, 4, 5, 6})
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{1, 2, 3, 4}) {
		t.Fatalf("expected one complete frame, got %v", frames)
	}

	frames = queue.Push([]byte{7})
	if len(frames) != 0 {
		t.Fatalf("expected no complete frame yet, got %v", frames)
	}

	frames = queue.Drain()
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{5, 6, 7, 0}) {
		t.Fatalf("expected padded remainder, got %v", frames)
	}

	if frames := queue.Drain(); frames != nil {
		t.Fatalf("expected nothing left after drain, got %v", frames)
	}
}

func TestFrameQueueClearDropsRemainder(t *testing.T) {
	queue := frameQueue{frameSize: 4}
	queue.Push([]byte{1, 2})
	queue.Clear()

	if frames := queue.Drain(); frames != nil {
		t.Fatalf("expected cleared queue to drain nothing, got %v", frames)
	}
}
