// Package metrics exposes Prometheus collectors fed from the interview event
// stream.
package metrics

import (
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_events_total",
		Help: "Orchestrator events by category",
	}, []string{"category"})

	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_sessions_total",
		Help: "Finished interview sessions by outcome",
	}, []string{"outcome"})

	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_state_transitions_total",
		Help: "Orchestrator state transitions by entered state",
	}, []string{"state"})

	AnswersRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_answers_recorded_total",
		Help: "Answers appended to session ledgers",
	}, []string{"scored"})

	AnswerScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_answer_score",
		Help:    "Evaluator score per scored answer",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	})

	AnswerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_answer_duration_seconds",
		Help:    "Time from question asked to answer recorded",
		Buckets: []float64{5, 15, 30, 60, 90, 120, 180, 300, 600},
	})

	EvaluationAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_evaluation_attempts_total",
		Help: "Evaluation attempts started",
	})

	EvaluationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_evaluation_retries_total",
		Help: "Failed evaluation attempts that were retried",
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_errors_total",
		Help: "Errors raised to the host by kind",
	}, []string{"kind"})
)

// Observe updates the collectors for one orchestrator event. It is meant to
// be registered with orchestration.WithEventCallback.
func Observe(event events.Event) {
	Events.WithLabelValues(event.Kind().Category()).Inc()

	switch e := event.(type) {
	case events.StateChanged:
		StateTransitions.WithLabelValues(e.State.String()).Inc()
	case events.EvaluationStarted:
		EvaluationAttempts.Inc()
	case events.EvaluationRetrying:
		EvaluationRetries.Inc()
	case events.AnswerRecorded:
		if e.Answer.Evaluation.IsUnscored() {
			AnswersRecorded.WithLabelValues("false").Inc()
		} else {
			AnswersRecorded.WithLabelValues("true").Inc()
			AnswerScore.Observe(float64(e.Answer.Evaluation.Score))
		}
		AnswerDuration.Observe(e.Answer.Elapsed.Seconds())
	case events.ErrorRaised:
		Errors.WithLabelValues(string(e.ErrorKind)).Inc()
	case events.SessionCompleted:
		SessionsTotal.WithLabelValues("completed").Inc()
	case events.SessionCancelled:
		SessionsTotal.WithLabelValues("cancelled").Inc()
	}
}
