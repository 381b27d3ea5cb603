// Package remote evaluates answers through an interview backend exposing
// POST /api/evaluate.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/koscakluka/ema-interview/core/evaluation"
	"github.com/koscakluka/ema-interview/core/interview"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const evaluatePath = "/api/evaluate"

type Evaluator struct {
	endpoint string
	client   *http.Client
}

type EvaluatorOption func(*Evaluator)

func WithHTTPClient(client *http.Client) EvaluatorOption {
	return func(e *Evaluator) {
		if client != nil {
			e.client = client
		}
	}
}

func NewEvaluator(baseURL string, opts ...EvaluatorOption) (*Evaluator, error) {
	endpoint, err := url.JoinPath(baseURL, evaluatePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	evaluator := &Evaluator{
		endpoint: endpoint,
		client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(evaluator)
	}
	return evaluator, nil
}

type evaluateRequest struct {
	Transcript     string `json:"transcript"`
	Question       string `json:"question"`
	JobDescription string `json:"job_description"`
}

func (e *Evaluator) Evaluate(ctx context.Context, req evaluation.Request) (interview.Evaluation, error) {
	ctx, span := tracer.Start(ctx, "evaluate answer")
	defer span.End()

	span.SetAttributes(
		attribute.String("request.url", e.endpoint),
		attribute.Int("request.question_index", req.QuestionIndex),
	)

	result, err := e.post(ctx, evaluateRequest{
		Transcript:     req.Transcript,
		Question:       req.Question,
		JobDescription: req.JobDescription,
	})
	if err != nil {
		err = evaluation.Failed(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return interview.Evaluation{}, err
	}

	evaluated := result.Normalize()
	span.SetAttributes(attribute.Int("response.score", evaluated.Score))
	return evaluated, nil
}

func (e *Evaluator) post(ctx context.Context, body evaluateRequest) (evaluation.Result, error) {
	requestBodyBytes, err := json.Marshal(body)
	if err != nil {
		return evaluation.Result{}, fmt.Errorf("error marshalling JSON: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return evaluation.Result{}, fmt.Errorf("error creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return evaluation.Result{}, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.Warn("evaluation service rejected request", "status", resp.Status, "body", string(errorBody))
		return evaluation.Result{}, fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}

	var result evaluation.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return evaluation.Result{}, fmt.Errorf("error decoding response body: %w", err)
	}
	return result, nil
}
