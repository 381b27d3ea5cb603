package portaudio

import "sync"

// frameQueue cuts a byte stream into fixed size frames for the blocking
// stream writer.
type frameQueue struct {
	frameSize int

	mu       sync.Mutex
	leftover []byte
}

// Push appends audio and returns every complete frame.
func (q *frameQueue) Push(audio []byte) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := append(q.leftover, audio...)
	var frames [][]byte
	for len(pending) >= q.frameSize {
		frames = append(frames, pending[:q.frameSize:q.frameSize])
		pending = pending[q.frameSize:]
	}
	q.leftover = append([]byte(nil), pending...)
	return frames
}

// Drain returns the remaining audio as a final frame padded with silence.
func (q *frameQueue) Drain() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.leftover) == 0 {
		return nil
	}
	frame := make([]byte, q.frameSize)
	copy(frame, q.leftover)
	q.leftover = nil
	return [][]byte{frame}
}

func (q *frameQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.leftover = nil
}
