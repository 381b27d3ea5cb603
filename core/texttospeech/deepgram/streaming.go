package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/texttospeech"
)

var (
	errRequestClosed    = errors.New("streaming request closed")
	errRequestCancelled = errors.New("streaming request cancelled")
	errTextCompleted    = errors.New("streaming request text already completed")
)

type streamingRequest struct {
	ws   *websocket.Conn
	wsMu sync.Mutex

	// segments holds the text between marks. segments[0] is the segment
	// deepgram is currently synthesizing.
	segments    []string
	headFlushed bool
	mu          sync.Mutex

	options texttospeech.TextToSpeechOptions

	textComplete bool
	cancelled    bool
	closed       bool

	report texttospeech.SpeechEndedReport
}

func (c *TextToSpeechClient) NewSpeechGeneratorV0(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechGeneratorV0, error) {
	ctx, span := tracer.Start(ctx, "open speech generator")
	defer span.End()

	req := &streamingRequest{
		options: texttospeech.TextToSpeechOptions{
			SpeechAudioCallback:   func([]byte) {},
			SpeechMarkCallback:    func(string) {},
			SpeechEndedCallbackV0: func(texttospeech.SpeechEndedReport) {},
			ErrorCallback:         func(error) {},
			EncodingInfo:          c.encodingInfo,
		},
	}

	for _, opt := range opts {
		opt(&req.options)
	}

	var err error
	if req.ws, err = c.connectWebsocket(ctx, req.options.EncodingInfo); err != nil {
		err = fmt.Errorf("failed to open websocket: %w", err)
		span.RecordError(err)
		return nil, err
	}

	go req.processIncomingMessages()

	return req, nil
}

func (c *TextToSpeechClient) connectWebsocket(ctx context.Context, encodingInfo audio.EncodingInfo) (*websocket.Conn, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	urlValues := url.Values{}
	urlValues.Set("encoding", encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", string(c.voice))
	urlValues.Set("container", "none")

	endpoint.Path = "/v1/speak"
	endpoint.RawQuery = urlValues.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(),
		http.Header{"Authorization": {"token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (r *streamingRequest) processIncomingMessages() {
	for {
		msgType, msg, err := r.ws.ReadMessage()
		if err != nil {
			r.mu.Lock()
			done := r.closed || r.cancelled
			r.mu.Unlock()
			if !done && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("deepgram speak websocket read failed", "error", err)
				r.options.ErrorCallback(err)
			}
			_ = r.Close()
			_ = r.ws.Close()
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) > 0 && !r.isCancelled() {
				r.options.SpeechAudioCallback(msg)
			}
		case websocket.TextMessage:
			var parsedMsg websocketMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Debug("failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				r.onFlushed()
			case "Warning", "Error":
				logger.Warn("deepgram speak reported a problem", "type", parsedMsg.Type, "message", string(msg))
			}
		}
	}
}

func (r *streamingRequest) onFlushed() {
	r.mu.Lock()
	if r.cancelled || r.closed || len(r.segments) == 0 {
		r.mu.Unlock()
		return
	}

	marked := r.segments[0]
	r.segments = r.segments[1:]
	r.headFlushed = false
	if r.textComplete {
		for len(r.segments) > 0 && r.segments[0] == "" {
			r.segments = r.segments[1:]
		}
	}

	ended := len(r.segments) == 0 && r.textComplete
	var sendErr error
	if len(r.segments) > 0 && r.segments[0] != "" {
		sendErr = r.sendWebsocketMessage(speakMessage{Type: "Speak", Text: r.segments[0]})
		if sendErr == nil && (len(r.segments) > 1 || r.textComplete) {
			sendErr = r.sendWebsocketMessage(flushMsg)
			r.headFlushed = sendErr == nil
		}
	}
	r.mu.Unlock()

	if sendErr != nil {
		logger.Warn("failed to continue deepgram speech", "error", sendErr)
	}

	r.options.SpeechMarkCallback(marked)
	if ended {
		r.options.SpeechEndedCallbackV0(r.report)
		_ = r.Close()
	}
}

func (r *streamingRequest) SendText(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkWritable(); err != nil {
		return err
	}

	if len(r.segments) == 0 {
		r.segments = append(r.segments, "")
	}

	if len(r.segments) == 1 {
		if err := r.sendWebsocketMessage(speakMessage{Type: "Speak", Text: text}); err != nil {
			return fmt.Errorf("failed to send websocket speak message: %w", err)
		}
	}
	r.segments[len(r.segments)-1] += text
	r.report.Text += text
	return nil
}

func (r *streamingRequest) Mark() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkWritable(); err != nil {
		return err
	}

	if len(r.segments) == 0 || r.segments[len(r.segments)-1] == "" {
		return nil
	}

	if len(r.segments) == 1 && !r.headFlushed {
		if err := r.sendWebsocketMessage(flushMsg); err != nil {
			return fmt.Errorf("failed to send websocket flush message: %w", err)
		}
		r.headFlushed = true
	}

	// Deepgram sometimes drops text sent right after a flush, so following
	// text is held back until the flush is confirmed.
	r.segments = append(r.segments, "")

	return nil
}

func (r *streamingRequest) EndOfText() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errRequestClosed
	} else if r.cancelled {
		r.mu.Unlock()
		return errRequestCancelled
	} else if r.textComplete {
		r.mu.Unlock()
		return nil
	}

	r.textComplete = true
	for len(r.segments) > 0 && r.segments[len(r.segments)-1] == "" {
		r.segments = r.segments[:len(r.segments)-1]
	}

	if len(r.segments) == 0 {
		r.mu.Unlock()
		r.options.SpeechEndedCallbackV0(r.report)
		return r.Close()
	}

	var err error
	if len(r.segments) == 1 && !r.headFlushed {
		if err = r.sendWebsocketMessage(flushMsg); err == nil {
			r.headFlushed = true
		}
	}
	r.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to send websocket flush message: %w", err)
	}
	return nil
}

func (r *streamingRequest) Cancel() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errRequestClosed
	}
	if r.cancelled {
		r.mu.Unlock()
		return nil
	}
	r.cancelled = true
	r.segments = nil
	err := r.sendWebsocketMessage(clearMsg)
	r.mu.Unlock()

	closeErr := r.Close()
	if err != nil {
		return fmt.Errorf("failed to send websocket clear message: %w", errors.Join(err, closeErr))
	}
	return closeErr
}

func (r *streamingRequest) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	err := r.sendWebsocketMessage(closeMsg)
	r.closed = true
	r.mu.Unlock()

	if err != nil {
		if aggressiveCloseErr := r.ws.Close(); aggressiveCloseErr != nil {
			return fmt.Errorf("failed to close websocket: %w", errors.Join(err, aggressiveCloseErr))
		}
	}
	return nil
}

func (r *streamingRequest) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// checkWritable must be called with mu held.
func (r *streamingRequest) checkWritable() error {
	if r.closed {
		return errRequestClosed
	} else if r.cancelled {
		return errRequestCancelled
	} else if r.textComplete {
		return errTextCompleted
	}
	return nil
}

type websocketMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

func (r *streamingRequest) sendWebsocketMessage(msg any) error {
	r.wsMu.Lock()
	defer r.wsMu.Unlock()
	if r.closed || r.ws == nil {
		return fmt.Errorf("websocket connection closed")
	}

	if err := r.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}
