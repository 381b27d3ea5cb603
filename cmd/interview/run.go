package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	orchestration "github.com/koscakluka/ema-interview/core"
	"github.com/koscakluka/ema-interview/core/evaluation"
	"github.com/koscakluka/ema-interview/core/evaluation/groq"
	"github.com/koscakluka/ema-interview/core/evaluation/openai"
	"github.com/koscakluka/ema-interview/core/evaluation/remote"
	"github.com/koscakluka/ema-interview/core/events"
	"github.com/koscakluka/ema-interview/core/interview"
	"github.com/koscakluka/ema-interview/core/questions"
	"github.com/koscakluka/ema-interview/internal/metrics"
	"github.com/koscakluka/ema-interview/internal/store"
)

func runInterview(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	closeLog, err := setupLogging(v, true)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	set, err := loadQuestionSet(ctx, v)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	session, err := interview.NewSession(set.Questions, interview.WithJobDescription(set.JobDescription))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	evaluator, err := newEvaluator(ctx, v)
	if err != nil {
		return fmt.Errorf("create evaluator: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	devices, err := newSpeech(ctx, v)
	if err != nil {
		return fmt.Errorf("set up speech: %w", err)
	}
	defer devices.Close()

	if addr := v.GetString("metrics-addr"); addr != "" {
		serveMetrics(addr)
	}

	retryPolicy := orchestration.DefaultRetryPolicy()
	retryPolicy.MaxRetries = v.GetInt("max-retries")
	if timeout := v.GetDuration("evaluation-timeout"); timeout > 0 {
		retryPolicy.AttemptTimeout = timeout
	}

	orchestrator := orchestration.NewOrchestrator(session,
		orchestration.WithSpeechOutput(devices.output),
		orchestration.WithSpeechCapture(devices.capture),
		orchestration.WithEvaluator(evaluator),
		orchestration.WithRetryPolicy(retryPolicy),
	)
	persist := &persister{store: db, orchestrator: orchestrator}

	program := tea.NewProgram(newModel(orchestrator, session, devices.typed), tea.WithAltScreen())

	slog.Info("starting interview", "session_id", session.ID, "questions", session.QuestionCount(), "voice", devices.typed == nil)
	go func() {
		err := orchestrator.Begin(ctx, orchestration.WithEventCallback(func(event events.Event) {
			metrics.Observe(event)
			persist.Observe(event)
			program.Send(eventMsg{event: event})
		}))
		if err != nil {
			program.Send(opErrMsg{err: err})
		}
	}()

	if _, err := program.Run(); err != nil {
		_ = orchestrator.Cancel()
		return fmt.Errorf("terminal ui: %w", err)
	}
	if !orchestrator.State().IsTerminal() && !orchestrator.IsCancelled() {
		_ = orchestrator.Cancel()
	}

	snapshot := orchestrator.Session()
	if snapshot.Completed {
		fmt.Println(formatReport(store.Record{Session: snapshot, Answers: orchestrator.Answers()}, 80))
	} else {
		fmt.Printf("Session %s ended before completion, %d answers saved.\n", snapshot.ID, len(orchestrator.Answers()))
	}
	return nil
}

func loadQuestionSet(ctx context.Context, v *viper.Viper) (questions.Set, error) {
	if path := v.GetString("questions"); path != "" {
		set, err := questions.LoadFile(path)
		if err != nil {
			return questions.Set{}, err
		}
		if jobDescription := v.GetString("job-description"); jobDescription != "" {
			set.JobDescription = jobDescription
		}
		return set, nil
	}

	jobDescription := v.GetString("job-description")
	if jobDescription == "" {
		return questions.Set{}, errors.New("either --questions or --job-description is required")
	}

	var opts []questions.GeneratorOption
	if apiKey := v.GetString("openai-api-key"); apiKey != "" {
		opts = append(opts, questions.WithAPIKey(apiKey))
	}
	if baseURL := v.GetString("llm-url"); baseURL != "" {
		opts = append(opts, questions.WithBaseURL(baseURL))
	}
	opts = append(opts, questions.WithModel(v.GetString("llm-model")))

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	fmt.Println("Generating questions...")
	return questions.NewGenerator(opts...).Generate(ctx, jobDescription)
}

func newEvaluator(ctx context.Context, v *viper.Viper) (evaluation.Evaluator, error) {
	switch kind := v.GetString("evaluator"); kind {
	case "groq":
		var opts []groq.EvaluatorOption
		if apiKey := v.GetString("groq-api-key"); apiKey != "" {
			opts = append(opts, groq.WithAPIKey(apiKey))
		}
		opts = append(opts, groq.WithModel(v.GetString("llm-model")))
		return groq.NewEvaluator(opts...)

	case "openai":
		var opts []openai.EvaluatorOption
		if apiKey := v.GetString("openai-api-key"); apiKey != "" {
			opts = append(opts, openai.WithAPIKey(apiKey))
		}
		if baseURL := v.GetString("llm-url"); baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		opts = append(opts, openai.WithModel(v.GetString("llm-model")))
		evaluator := openai.NewEvaluator(opts...)

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := evaluator.Ping(pingCtx); err != nil {
			// answers are still recorded unscored when the model is down
			slog.Warn("evaluation model health check failed", "error", err)
		}
		return evaluator, nil

	case "remote":
		return remote.NewEvaluator(v.GetString("evaluator-url"))

	default:
		return nil, fmt.Errorf("unknown evaluator %q", kind)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)
}

// persister saves the session as answers are recorded, so an interrupted
// session keeps its answers.
type persister struct {
	store        *store.Store
	orchestrator *orchestration.Orchestrator
}

func (p *persister) Observe(event events.Event) {
	switch e := event.(type) {
	case events.StateChanged:
		if e.State == interview.StateAsking && e.QuestionIndex == 0 {
			p.save()
		}
	case events.AnswerRecorded:
		p.save()
	case events.SessionCompleted:
		p.save()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.store.MarkComplete(ctx, e.SessionID); err != nil {
			slog.Error("failed to mark session complete", "session_id", e.SessionID, "error", err)
		}
	}
}

func (p *persister) save() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session := p.orchestrator.Session()
	if err := p.store.SaveSession(ctx, session, p.orchestrator.Answers()); err != nil {
		slog.Error("failed to save session", "session_id", session.ID, "error", err)
	}
}
