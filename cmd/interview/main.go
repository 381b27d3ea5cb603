package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	// .env is optional, real environment variables take precedence
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "interview",
		Short:        "Practice spoken job interviews with AI feedback",
		SilenceUsage: true,
	}

	run := runCmd()
	root.AddCommand(run, reportCmd(), listCmd())

	// "run" is the default when no subcommand is given.
	root.RunE = run.RunE
	root.Flags().AddFlagSet(run.Flags())

	return root
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an interview session in the terminal",
		RunE:  runInterview,
	}
	f := cmd.Flags()
	f.StringP("questions", "q", "", "Path to a YAML question set")
	f.StringP("job-description", "j", "", "Job description used to generate questions when no question set is given")
	f.String("evaluator", "groq", "Answer evaluator (groq, openai, remote)")
	f.String("evaluator-url", "http://localhost:8000", "Base URL of the remote evaluation service")
	f.String("llm-url", "", "OpenAI compatible API base URL (openai evaluator and question generation)")
	f.String("llm-model", "", "Model used for evaluation and question generation")
	f.String("groq-api-key", "", "Groq API key (or set GROQ_API_KEY)")
	f.String("openai-api-key", "", "OpenAI API key (or set OPENAI_API_KEY)")
	f.String("deepgram-api-key", "", "Deepgram API key enabling spoken questions and answers (or set DEEPGRAM_API_KEY)")
	f.String("voice", "", "Deepgram voice for questions")
	f.String("audio", "miniaudio", "Audio device backend (miniaudio, portaudio, none)")
	f.Int("max-retries", 2, "Evaluation retries after the first attempt")
	f.Duration("evaluation-timeout", 0, "Timeout of a single evaluation attempt (0 for the default)")
	f.String("db", "interview.db", "SQLite database path")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	addLoggingFlags(cmd)
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Print the report of a stored session",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	}
	cmd.Flags().String("db", "interview.db", "SQLite database path")
	cmd.Flags().Int("width", 80, "Wrap width of the report")
	addLoggingFlags(cmd)
	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		RunE:  runList,
	}
	cmd.Flags().String("db", "interview.db", "SQLite database path")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of sessions")
	addLoggingFlags(cmd)
	return cmd
}

func addLoggingFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.String("log-file", "", "Write logs to this file instead of stderr")
}

// setupLogging configures the default logger. The returned function closes
// the log file, if any.
func setupLogging(v *viper.Viper, quiet bool) (func(), error) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	closeLog := func() {}
	if path := v.GetString("log-file"); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = file
		closeLog = func() { _ = file.Close() }
	} else if quiet {
		// the terminal UI owns stderr
		out = io.Discard
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(out, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(out, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
	return closeLog, nil
}

// viperForCmd binds a command's flags, INTERVIEW_* environment variables and
// an optional interview.yaml to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("INTERVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("interview")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/interview")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}
