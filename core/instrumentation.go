package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-interview/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	evaluationAttempts, _ = meter.Int64Counter("interview.evaluation.attempts",
		metric.WithDescription("Evaluation attempts, including retries"))
	evaluationFailures, _ = meter.Int64Counter("interview.evaluation.failures",
		metric.WithDescription("Answers recorded without a score after all attempts failed"))
	answerDuration, _ = meter.Float64Histogram("interview.answer.duration",
		metric.WithDescription("Time from asking a question to recording its answer"),
		metric.WithUnit("s"))
)
