package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/koscakluka/ema-interview/core/evaluation"
	"github.com/koscakluka/ema-interview/core/interview"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultModel = openai.GPT4oMini

// Evaluator scores answers through any OpenAI compatible chat completion
// API.
type Evaluator struct {
	api   *openai.Client
	model string
}

type evaluatorConfig struct {
	apiKey  string
	baseURL string
	model   string
}

type EvaluatorOption func(*evaluatorConfig)

func WithAPIKey(apiKey string) EvaluatorOption {
	return func(c *evaluatorConfig) { c.apiKey = apiKey }
}

func WithBaseURL(baseURL string) EvaluatorOption {
	return func(c *evaluatorConfig) { c.baseURL = baseURL }
}

func WithModel(model string) EvaluatorOption {
	return func(c *evaluatorConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// NewEvaluator creates an evaluator. The API key defaults to OPENAI_API_KEY.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	cfg := evaluatorConfig{
		apiKey: os.Getenv("OPENAI_API_KEY"),
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	config := openai.DefaultConfig(cfg.apiKey)
	if cfg.baseURL != "" {
		config.BaseURL = cfg.baseURL
	}
	config.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	return &Evaluator{
		api:   openai.NewClientWithConfig(config),
		model: cfg.model,
	}
}

func (e *Evaluator) Evaluate(ctx context.Context, req evaluation.Request) (interview.Evaluation, error) {
	ctx, span := tracer.Start(ctx, "evaluate answer")
	defer span.End()

	span.SetAttributes(
		attribute.String("request.model", e.model),
		attribute.Int("request.question_index", req.QuestionIndex),
	)

	resp, err := e.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: evaluation.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: evaluation.BuildPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		err = evaluation.Failed(fmt.Errorf("chat completion: %w", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return interview.Evaluation{}, err
	}
	if len(resp.Choices) == 0 {
		err := evaluation.Failed(fmt.Errorf("chat completion returned no choices"))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return interview.Evaluation{}, err
	}

	raw := resp.Choices[0].Message.Content
	result, err := evaluation.ParseContent(raw)
	if err != nil {
		logger.Debug("chat completion returned content that could not be parsed", "content", raw)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return interview.Evaluation{}, err
	}

	evaluated := result.Normalize()
	span.SetAttributes(attribute.Int("response.score", evaluated.Score))
	return evaluated, nil
}

// Ping checks that the API is reachable and the credentials are accepted.
func (e *Evaluator) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "ping")
	defer span.End()

	if _, err := e.api.ListModels(ctx); err != nil {
		err = fmt.Errorf("failed to reach evaluation api: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
