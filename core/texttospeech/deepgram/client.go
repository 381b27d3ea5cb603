package deepgram

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/koscakluka/ema-interview/core/audio"
)

const defaultBaseURL = "wss://api.deepgram.com"

type TextToSpeechClient struct {
	apiKey       string
	baseURL      string
	voice        Voice
	encodingInfo audio.EncodingInfo
}

type ClientOption func(*TextToSpeechClient)

// WithAPIKey sets the key used for authorization. It defaults to the
// DEEPGRAM_API_KEY environment variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *TextToSpeechClient) { c.apiKey = apiKey }
}

// WithBaseURL points the client at a different websocket endpoint, e.g. a
// self-hosted deployment.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *TextToSpeechClient) { c.baseURL = baseURL }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) ClientOption {
	return func(c *TextToSpeechClient) {
		if !encodingInfo.IsZero() {
			c.encodingInfo = encodingInfo
		}
	}
}

func NewTextToSpeechClient(ctx context.Context, voice Voice, opts ...ClientOption) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{
		voice:        defaultVoice,
		baseURL:      defaultBaseURL,
		encodingInfo: audio.GetDefaultEncodingInfo(),
	}
	if apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY"); ok {
		client.apiKey = apiKey
	}
	for _, opt := range opts {
		opt(client)
	}

	if voice != "" {
		if !slices.Contains(GetAvailableVoices(), voice) {
			return nil, fmt.Errorf("invalid voice %q", voice)
		}
		client.voice = voice
	}

	if client.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	return client, nil
}

func (c *TextToSpeechClient) SetVoice(voice Voice) {
	c.voice = voice
}

func (c *TextToSpeechClient) Voice() Voice {
	return c.voice
}
