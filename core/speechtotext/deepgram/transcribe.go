package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/internal/utils"
)

type callbackConfig struct {
	partialInterimTranscriptionCallback func(string)
	interimTranscriptionCallback        func(string)
	partialTranscriptionCallback        func(string)
	transcriptionCallback               func(string)
	startSpeechCallback                 func()
	endSpeechCallback                   func()
	streamClosedCallback                func(error)
}

type websocketConfig struct {
	sampleRate int
	encoding   string

	shouldDetectSpeechStart            bool
	shouldEnhanceSpeechEndingDetection bool
	shouldRequestInterimResults        bool
}

// newCallbackConfig fills unset callbacks with no-ops and derives which
// optional deepgram features the configured callbacks need.
func newCallbackConfig(options speechtotext.TranscriptionOptions) (callbackConfig, websocketConfig) {
	wsConfig := websocketConfig{
		shouldDetectSpeechStart: options.SpeechStartedCallback != nil,
		shouldEnhanceSpeechEndingDetection: options.TranscriptionCallback != nil ||
			options.SpeechEndedCallback != nil,
		shouldRequestInterimResults: options.InterimTranscriptionCallback != nil ||
			options.PartialInterimTranscriptionCallback != nil,
	}

	callbacks := callbackConfig{
		partialInterimTranscriptionCallback: orNoop(options.PartialInterimTranscriptionCallback),
		interimTranscriptionCallback:        orNoop(options.InterimTranscriptionCallback),
		partialTranscriptionCallback:        orNoop(options.PartialTranscriptionCallback),
		transcriptionCallback:               orNoop(options.TranscriptionCallback),
		startSpeechCallback:                 func() {},
		endSpeechCallback:                   func() {},
		streamClosedCallback:                func(error) {},
	}
	if options.SpeechStartedCallback != nil {
		callbacks.startSpeechCallback = options.SpeechStartedCallback
	}
	if options.SpeechEndedCallback != nil {
		callbacks.endSpeechCallback = options.SpeechEndedCallback
	}
	if options.StreamClosedCallback != nil {
		callbacks.streamClosedCallback = options.StreamClosedCallback
	}

	return callbacks, wsConfig
}

func orNoop(callback func(string)) func(string) {
	if callback == nil {
		return func(string) {}
	}
	return callback
}

func (s *TranscriptionClient) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	ctx, span := tracer.Start(ctx, "open transcription stream")
	defer span.End()

	options := &speechtotext.TranscriptionOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(options)
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	callbacks, wsConfig := newCallbackConfig(*options)
	wsConfig.sampleRate = encoding.SampleRate
	wsConfig.encoding = encoding.Format

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		return errStreamActive
	}

	conn, err := s.connectWebsocket(ctx, wsConfig)
	if err != nil {
		err = fmt.Errorf("failed to open websocket: %w", err)
		span.RecordError(err)
		return err
	}

	s.conn = conn
	s.closing = false
	s.lastMsgTs = time.Now()

	s.transcriptMu.Lock()
	s.accumulatedTranscript = ""
	s.unendedSegment = false
	s.transcriptMu.Unlock()

	go s.readAndProcessMessages(ctx, conn, callbacks, options.EncodingInfo)

	return nil
}

func (s *TranscriptionClient) connectWebsocket(ctx context.Context, options websocketConfig) (*websocket.Conn, error) {
	listenUrl, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	listenUrl.Path = "/v1/listen"

	queryParams := listenUrl.Query()
	queryParams.Set("encoding", options.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", s.model)
	queryParams.Set("language", s.language)
	queryParams.Set("smart_format", "true")
	if options.shouldEnhanceSpeechEndingDetection {
		queryParams.Set("utterance_end_ms", "1000")
		queryParams.Set("interim_results", "true")
	} else if options.shouldRequestInterimResults {
		queryParams.Set("interim_results", "true")
	}
	queryParams.Set("endpointing", "300")
	if options.shouldDetectSpeechStart || options.shouldEnhanceSpeechEndingDetection {
		queryParams.Set("vad_events", "true")
	}
	listenUrl.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenUrl.String(),
		http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func (s *TranscriptionClient) SendAudio(audio []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil || s.closing {
		return errNoStream
	}

	s.lastMsgTs = time.Now()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

// StopStream asks deepgram to finish processing buffered audio. Remaining
// results are still delivered, followed by the stream closed callback.
func (s *TranscriptionClient) StopStream() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil || s.closing {
		return nil
	}

	s.closing = true
	if err := s.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return fmt.Errorf("failed to send close stream message: %w", err)
	}
	return nil
}

// Close drops the active stream without waiting for pending results.
func (s *TranscriptionClient) Close() error {
	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.closing = true
	s.connMu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("failed to close deepgram websocket: %w", err)
	}
	return nil
}

func (s *TranscriptionClient) writeControl(msg any) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil || s.closing {
		return errNoStream
	}
	return s.conn.WriteJSON(msg)
}

func (s *TranscriptionClient) sendSilence(audio []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil || s.closing {
		return errNoStream
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (s *TranscriptionClient) sinceLastAudio() time.Duration {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return time.Since(s.lastMsgTs)
}

func (s *TranscriptionClient) readAndProcessMessages(ctx context.Context, conn *websocket.Conn, callbacks callbackConfig, encoding audio.EncodingInfo) {
	silenceCtx, silenceCancel := context.WithCancel(ctx)
	defer silenceCancel()

	go s.generateSilence(silenceCtx, encoding)

	var closeErr error
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.connMu.Lock()
				requested := s.closing
				s.connMu.Unlock()
				if !requested {
					logger.Warn("failed to read deepgram websocket message", "error", err)
					closeErr = err
				}
			}
			break
		}
		if msgType != websocket.BinaryMessage {
			s.processMessage(msg, callbacks)
		}
	}

	s.connMu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.connMu.Unlock()
	_ = conn.Close()

	callbacks.streamClosedCallback(closeErr)
}

func (s *TranscriptionClient) processMessage(msg []byte, callbacks callbackConfig) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Debug("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Debug("failed to unmarshal deepgram results", "error", err)
			return
		}

		transcript := ""
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		}

		if msgResp.IsFinal {
			if len(transcript) > 0 {
				s.transcriptMu.Lock()
				s.accumulatedTranscript = strings.TrimSpace(s.accumulatedTranscript + " " + transcript)
				s.transcriptMu.Unlock()
				callbacks.partialTranscriptionCallback(transcript)
			}
			if msgResp.SpeechFinal {
				s.onSpeechEnded(callbacks)
			}
		} else if len(transcript) > 0 {
			s.transcriptMu.Lock()
			accumulated := s.accumulatedTranscript
			s.transcriptMu.Unlock()
			callbacks.partialInterimTranscriptionCallback(transcript)
			callbacks.interimTranscriptionCallback(strings.TrimSpace(accumulated + " " + transcript))
		}

	case api.TypeUtteranceEndResponse:
		s.transcriptMu.Lock()
		unended := s.unendedSegment
		s.transcriptMu.Unlock()
		if unended {
			s.onSpeechEnded(callbacks)
		}

	case api.TypeSpeechStartedResponse:
		s.transcriptMu.Lock()
		s.unendedSegment = true
		s.transcriptMu.Unlock()
		callbacks.startSpeechCallback()
	}
}

func (s *TranscriptionClient) onSpeechEnded(callbacks callbackConfig) {
	s.transcriptMu.Lock()
	s.unendedSegment = false
	fullTranscript := strings.TrimSpace(s.accumulatedTranscript)
	s.accumulatedTranscript = ""
	s.transcriptMu.Unlock()

	if len(fullTranscript) > 0 {
		callbacks.transcriptionCallback(fullTranscript)
	}
	callbacks.endSpeechCallback()
}

// generateSilence pads gaps in the audio stream so deepgram keeps
// finalizing results, and falls back to keep-alive messages during long
// pauses.
func (s *TranscriptionClient) generateSilence(ctx context.Context, encoding audio.EncodingInfo) {
	type silenceGeneratorState string
	const (
		silenceGeneratorStateWaiting   silenceGeneratorState = "waiting"
		silenceGeneratorStateSilence   silenceGeneratorState = "silence"
		silenceGeneratorStateKeepAlive silenceGeneratorState = "keepAlive"
	)

	const chunkDuration = 50 * time.Millisecond
	ticker := time.NewTicker(chunkDuration)
	defer ticker.Stop()

	chunk := make([]byte, encoding.BytesPerSecond()*int(chunkDuration/time.Millisecond)/1000)
	for i := range chunk {
		chunk[i] = encoding.SilenceValue()
	}

	state := silenceGeneratorStateWaiting
	var firstSilenceTime *time.Time
	var lastKeepAliveTime *time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sinceAudio := s.sinceLastAudio()
			switch state {
			case silenceGeneratorStateWaiting:
				if sinceAudio > chunkDuration {
					state = silenceGeneratorStateSilence
					firstSilenceTime = utils.Ptr(time.Now())
				}

			case silenceGeneratorStateSilence:
				if sinceAudio < chunkDuration {
					state = silenceGeneratorStateWaiting
					firstSilenceTime = nil
					continue
				}
				if time.Since(*firstSilenceTime) >= time.Second {
					state = silenceGeneratorStateKeepAlive
					lastKeepAliveTime = utils.Ptr(time.Now())
					firstSilenceTime = nil
					continue
				}

				if err := s.sendSilence(chunk); err != nil {
					logger.Debug("failed to send silence", "error", err)
				}

			case silenceGeneratorStateKeepAlive:
				if sinceAudio < chunkDuration {
					state = silenceGeneratorStateWaiting
					continue
				}

				if time.Since(*lastKeepAliveTime) >= 5*time.Second {
					lastKeepAliveTime = utils.Ptr(time.Now())
					if err := s.writeControl(struct {
						Type string `json:"type"`
					}{Type: "KeepAlive"}); err != nil {
						logger.Debug("failed to send keep alive", "error", err)
					}
				}
			}
		}
	}
}
