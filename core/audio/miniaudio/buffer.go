package miniaudio

import "sync"

type playbackMark struct {
	name     string
	position int
	callback func(string)
}

// playbackBuffer queues audio for the device callback and tracks marks by
// their byte offset into the queued audio.
type playbackBuffer struct {
	mu    sync.Mutex
	audio []byte
	marks []playbackMark
}

func (b *playbackBuffer) Write(audio []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audio = append(b.audio, audio...)
}

// Mark registers callback to be called once everything written so far has
// been read out.
func (b *playbackBuffer) Mark(name string, callback func(string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.marks = append(b.marks, playbackMark{name: name, position: len(b.audio), callback: callback})
}

// Clear drops queued audio. Pending marks are dropped without being called.
func (b *playbackBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audio = nil
	b.marks = nil
}

func (b *playbackBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.audio)
}

// Read fills out with queued audio, padding with silence when the queue runs
// dry, and returns the marks passed by this read.
func (b *playbackBuffer) Read(out []byte, silence byte) []playbackMark {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := copy(out, b.audio)
	for i := n; i < len(out); i++ {
		out[i] = silence
	}
	b.audio = b.audio[n:]
	if len(b.audio) == 0 {
		b.audio = nil
	}

	passed := 0
	for i := range b.marks {
		if b.marks[i].position <= n {
			passed++
			continue
		}
		b.marks[i].position -= n
	}

	if passed == 0 {
		return nil
	}
	toCall := b.marks[:passed:passed]
	b.marks = b.marks[passed:]
	return toCall
}
