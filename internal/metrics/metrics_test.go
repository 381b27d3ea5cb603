package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/interview"
	"github.com/prometheus/client_golang/prometheus"
)

// gathered returns the summed value of a counter family, or the sample count
// for histograms.
func gathered(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue metrics
				}
			}
			if counter := metric.GetCounter(); counter != nil {
				total += counter.GetValue()
			}
			if histogram := metric.GetHistogram(); histogram != nil {
				total += float64(histogram.GetSampleCount())
			}
		}
	}
	return total
}

func TestObserve(t *testing.T) {
	tests := []struct {
		name   string
		event  events.Event
		metric string
		labels map[string]string
	}{
		{
			name:   "state change",
			event:  events.NewStateChanged(interview.StateListening, 0),
			metric: "interview_state_transitions_total",
			labels: map[string]string{"state": string(interview.StateListening)},
		},
		{
			name:   "event category",
			event:  events.NewAnswerCaptureStarted(0),
			metric: "interview_events_total",
			labels: map[string]string{"category": "answer_capture"},
		},
		{
			name:   "evaluation attempt",
			event:  events.NewEvaluationStarted(0, 1),
			metric: "interview_evaluation_attempts_total",
		},
		{
			name:   "evaluation retry",
			event:  events.NewEvaluationRetrying(0, 1, errors.New("timeout"), time.Millisecond),
			metric: "interview_evaluation_retries_total",
		},
		{
			name:   "error",
			event:  events.NewErrorRaised(events.ErrorKindEvaluationFailed, 0, errors.New("down")),
			metric: "interview_errors_total",
			labels: map[string]string{"kind": string(events.ErrorKindEvaluationFailed)},
		},
		{
			name:   "completed",
			event:  events.NewSessionCompleted("s1", nil, interview.Aggregate{}, time.Minute),
			metric: "interview_sessions_total",
			labels: map[string]string{"outcome": "completed"},
		},
		{
			name:   "cancelled",
			event:  events.NewSessionCancelled(interview.StateListening, 0),
			metric: "interview_sessions_total",
			labels: map[string]string{"outcome": "cancelled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := gathered(t, tt.metric, tt.labels)
			Observe(tt.event)
			if after := gathered(t, tt.metric, tt.labels); after != before+1 {
				t.Fatalf("expected %s to grow by 1, got %v -> %v", tt.metric, before, after)
			}
		})
	}
}

func TestObserveAnswerRecorded(t *testing.T) {
	scoredBefore := gathered(t, "interview_answers_recorded_total", map[string]string{"scored": "true"})
	unscoredBefore := gathered(t, "interview_answers_recorded_total", map[string]string{"scored": "false"})
	scoresBefore := gathered(t, "interview_answer_score", nil)
	durationsBefore := gathered(t, "interview_answer_duration_seconds", nil)

	Observe(events.NewAnswerRecorded(interview.Answer{
		QuestionIndex: 0,
		Evaluation:    interview.Evaluation{Score: 8},
		Elapsed:       30 * time.Second,
	}))
	Observe(events.NewAnswerRecorded(interview.Answer{
		QuestionIndex: 1,
		Evaluation:    interview.Unscored(),
		Elapsed:       10 * time.Second,
	}))

	if got := gathered(t, "interview_answers_recorded_total", map[string]string{"scored": "true"}); got != scoredBefore+1 {
		t.Fatalf("expected one scored answer, got %v", got-scoredBefore)
	}
	if got := gathered(t, "interview_answers_recorded_total", map[string]string{"scored": "false"}); got != unscoredBefore+1 {
		t.Fatalf("expected one unscored answer, got %v", got-unscoredBefore)
	}
	if got := gathered(t, "interview_answer_score", nil); got != scoresBefore+1 {
		t.Fatalf("expected only the scored answer in the score histogram, got %v", got-scoresBefore)
	}
	if got := gathered(t, "interview_answer_duration_seconds", nil); got != durationsBefore+2 {
		t.Fatalf("expected both answers in the duration histogram, got %v", got-durationsBefore)
	}
}
