package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/koscakluka/ema-interview/core/interview"
	"github.com/koscakluka/ema-interview/internal/store"
)

func runReport(cmd *cobra.Command, args []string) error {
	v := viperForCmd(cmd)
	closeLog, err := setupLogging(v, false)
	if err != nil {
		return err
	}
	defer closeLog()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	record, err := db.GetSession(cmd.Context(), args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no session with id %q", args[0])
	} else if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), formatReport(record, v.GetInt("width")))
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	closeLog, err := setupLogging(v, false)
	if err != nil {
		return err
	}
	defer closeLog()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	summaries, err := db.ListSessions(cmd.Context(), v.GetInt("limit"))
	if err != nil {
		return err
	}
	return writeSessionList(cmd.OutOrStdout(), summaries)
}

func writeSessionList(out io.Writer, summaries []store.Summary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(out, "No sessions recorded yet.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tANSWERED\tMEAN\tSTATUS")
	for _, summary := range summaries {
		status := "incomplete"
		if summary.Completed {
			status = "complete"
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%.1f\t%s\n",
			summary.ID,
			summary.StartedAt.Local().Format("2006-01-02 15:04"),
			summary.AnswerCount, summary.QuestionCount,
			summary.MeanScore,
			status,
		)
	}
	return w.Flush()
}

// formatReport renders a stored session as plain text.
func formatReport(record store.Record, width int) string {
	if width <= 0 {
		width = 80
	}
	body := max(width-4, 20)

	var b strings.Builder
	fmt.Fprintf(&b, "Interview %s\n", record.Session.ID)
	fmt.Fprintf(&b, "Started %s", record.Session.StartedAt.Local().Format("2006-01-02 15:04"))
	if record.Session.Completed {
		fmt.Fprintf(&b, ", completed in %s", record.Session.TotalElapsed.Round(time.Second))
	}
	b.WriteString("\n")
	if record.Session.JobDescription != "" {
		b.WriteString("\n" + wordwrap.String("Role: "+record.Session.JobDescription, width) + "\n")
	}

	for _, answer := range record.Answers {
		b.WriteString("\n")
		b.WriteString(wordwrap.String(fmt.Sprintf("%d. %s", answer.QuestionIndex+1, answer.Question), width) + "\n")

		transcript := answer.Transcript
		if transcript == "" {
			transcript = "(no answer)"
		}
		b.WriteString(indent.String(wordwrap.String(transcript, body), 4) + "\n")

		if answer.Evaluation.IsUnscored() {
			b.WriteString("    Score: not scored\n")
			continue
		}
		fmt.Fprintf(&b, "    Score: %d/%d\n", answer.Evaluation.Score, interview.MaxScore)
		for _, section := range []struct {
			title string
			items []string
		}{
			{"Strengths", answer.Evaluation.Strengths},
			{"Weaknesses", answer.Evaluation.Weaknesses},
			{"Suggestions", answer.Evaluation.Suggestions},
		} {
			if len(section.items) == 0 {
				continue
			}
			b.WriteString("    " + section.title + ":\n")
			for _, item := range section.items {
				b.WriteString(indent.String(wordwrap.String("- "+item, body-2), 6) + "\n")
			}
		}
	}

	aggregate := record.Aggregate()
	unanswered := len(record.Session.Questions) - aggregate.Count
	fmt.Fprintf(&b, "\nAverage score: %.1f (%d of %d answers scored)", aggregate.MeanScore, aggregate.ScoredCount, aggregate.Count)
	if unanswered > 0 {
		fmt.Fprintf(&b, ", %d unanswered", unanswered)
	}
	return b.String()
}
