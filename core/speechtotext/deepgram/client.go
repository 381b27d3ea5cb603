package deepgram

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultBaseURL  = "wss://api.deepgram.com"
	defaultModel    = "nova-3"
	defaultLanguage = "en-US"
)

var (
	errStreamActive = errors.New("transcription stream already active")
	errNoStream     = errors.New("no active transcription stream")
)

// TranscriptionClient streams audio to deepgram's listen endpoint. One
// client serves a single stream at a time; a new stream can be opened once
// the previous one closed.
type TranscriptionClient struct {
	apiKey   string
	baseURL  string
	model    string
	language string

	conn      *websocket.Conn
	closing   bool
	lastMsgTs time.Time
	connMu    sync.Mutex

	accumulatedTranscript string
	unendedSegment        bool
	transcriptMu          sync.Mutex
}

type ClientOption func(*TranscriptionClient)

// WithAPIKey sets the key used for authorization. It defaults to the
// DEEPGRAM_API_KEY environment variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *TranscriptionClient) { c.apiKey = apiKey }
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *TranscriptionClient) { c.baseURL = baseURL }
}

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) {
		if model != "" {
			c.model = model
		}
	}
}

func WithLanguage(language string) ClientOption {
	return func(c *TranscriptionClient) {
		if language != "" {
			c.language = language
		}
	}
}

func NewTranscriptionClient(opts ...ClientOption) (*TranscriptionClient, error) {
	client := &TranscriptionClient{
		baseURL:  defaultBaseURL,
		model:    defaultModel,
		language: defaultLanguage,
	}
	if apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY"); ok {
		client.apiKey = apiKey
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		return nil, errors.New("deepgram api key not found")
	}

	return client, nil
}
