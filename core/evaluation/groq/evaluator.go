package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/ema-interview/core/evaluation"
	"github.com/koscakluka/ema-interview/core/interview"
	"github.com/koscakluka/ema-interview/internal/utils"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "openai/gpt-oss-20b"

	schemaName = "InterviewEvaluation"
)

type Evaluator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	schema  jsonschema.Schema
}

type EvaluatorOption func(*Evaluator)

func WithAPIKey(apiKey string) EvaluatorOption {
	return func(e *Evaluator) { e.apiKey = apiKey }
}

func WithModel(model string) EvaluatorOption {
	return func(e *Evaluator) {
		if model != "" {
			e.model = model
		}
	}
}

// WithBaseURL points the evaluator at an OpenAI compatible endpoint other
// than Groq. The chat completions path is appended to it.
func WithBaseURL(baseURL string) EvaluatorOption {
	return func(e *Evaluator) {
		if baseURL != "" {
			e.baseURL = baseURL
		}
	}
}

func WithHTTPClient(client *http.Client) EvaluatorOption {
	return func(e *Evaluator) {
		if client != nil {
			e.client = client
		}
	}
}

// NewEvaluator creates an evaluator backed by Groq structured outputs. The
// API key defaults to GROQ_API_KEY.
func NewEvaluator(opts ...EvaluatorOption) (*Evaluator, error) {
	// Groq only supports a subset of json schema, references have to be
	// inlined
	reflector := jsonschema.Reflector{DoNotReference: true}
	evaluator := &Evaluator{
		apiKey:  os.Getenv("GROQ_API_KEY"),
		model:   DefaultModel,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		schema:  *reflector.Reflect(&evaluation.Result{}),
	}
	for _, opt := range opts {
		opt(evaluator)
	}

	if evaluator.apiKey == "" {
		return nil, fmt.Errorf("groq api key not set")
	}
	return evaluator, nil
}

func (e *Evaluator) Evaluate(ctx context.Context, req evaluation.Request) (interview.Evaluation, error) {
	ctx, span := tracer.Start(ctx, "evaluate answer")
	defer span.End()

	span.SetAttributes(
		attribute.String("request.model", e.model),
		attribute.Int("request.question_index", req.QuestionIndex),
	)

	content, err := e.complete(ctx, []message{
		{Role: messageRoleSystem, Content: evaluation.SystemPrompt},
		{Role: messageRoleUser, Content: evaluation.BuildPrompt(req)},
	})
	if err != nil {
		err = evaluation.Failed(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return interview.Evaluation{}, err
	}

	result, err := evaluation.ParseContent(content)
	if err != nil {
		logger.Debug("groq returned content that could not be parsed", "content", content)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return interview.Evaluation{}, err
	}

	evaluated := result.Normalize()
	span.SetAttributes(attribute.Int("response.score", evaluated.Score))
	return evaluated, nil
}

func (e *Evaluator) complete(ctx context.Context, messages []message) (string, error) {
	reqBody := schemaRequestBody{
		Model:    e.model,
		Messages: messages,
		ResponseFormat: &ChatResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchema{
				Name:   schemaName,
				Schema: e.schema,
				Strict: true,
			},
		},
		Temperature: utils.Ptr(0.3),
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshalling JSON: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.Warn("groq rejected evaluation request", "status", resp.Status, "body", string(errorBody))
		return "", fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}

	var responseBody schemaResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&responseBody); err != nil {
		return "", fmt.Errorf("error decoding response body: %w", err)
	}
	if len(responseBody.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}

	return responseBody.Choices[0].Message.Content, nil
}
