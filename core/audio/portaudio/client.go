// Package portaudio drives a blocking duplex stream. Playback completion is
// reported through AwaitMark since the stream has no callback hooks.
package portaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-interview/core/audio"
)

const DefaultBufferSize = 512

type Client struct {
	stream *portaudio.Stream
	frames frameQueue

	in  []int16
	out []int16

	readMu  sync.Mutex
	writeMu sync.Mutex
}

func NewClient(bufferSize int) (*Client, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	return &Client{
		stream: stream,
		frames: frameQueue{frameSize: bufferSize * 2},
		in:     in,
		out:    out,
	}, nil
}

// Stream reads microphone audio until ctx is cancelled.
func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := c.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			return fmt.Errorf("failed to read from portaudio stream: %w", err)
		}

		frame := make([]byte, len(c.in)*2)
		for i, sample := range c.in {
			binary.LittleEndian.PutUint16(frame[i*2:], uint16(sample))
		}
		onAudio(frame)
	}
}

func (c *Client) Close() {
	if err := errors.Join(c.stream.Close(), portaudio.Terminate()); err != nil {
		logger.Debug("portaudio closed with errors", "error", err)
	}
}

// SendAudio writes every complete frame immediately and keeps the remainder
// until more audio arrives or AwaitMark flushes it.
func (c *Client) SendAudio(audio []byte) error {
	return c.writeFrames(c.frames.Push(audio))
}

func (c *Client) ClearBuffer() {
	c.frames.Clear()
}

// AwaitMark blocks until all audio sent so far has been written to the
// device.
func (c *Client) AwaitMark() error {
	return c.writeFrames(c.frames.Drain())
}

func (c *Client) writeFrames(frames [][]byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for _, frame := range frames {
		for i := range c.out {
			c.out[i] = int16(binary.LittleEndian.Uint16(frame[i*2:]))
		}
		if err := c.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
	}
	return nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
