// Package store persists finished interview sessions in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/koscakluka/ema-interview/core/interview"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("session not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// an in-memory database only lives as long as its connection
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		job_description TEXT NOT NULL DEFAULT '',
		questions TEXT NOT NULL,
		started_at TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		total_elapsed_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS answers (
		session_id TEXT NOT NULL,
		question_index INTEGER NOT NULL,
		question TEXT NOT NULL,
		transcript TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		scored INTEGER NOT NULL DEFAULT 0,
		strengths TEXT NOT NULL DEFAULT '[]',
		weaknesses TEXT NOT NULL DEFAULT '[]',
		suggestions TEXT NOT NULL DEFAULT '[]',
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		recorded_at TEXT NOT NULL,
		PRIMARY KEY (session_id, question_index),
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record is a stored session with its answers in question order.
type Record struct {
	Session interview.Session
	Answers []interview.Answer
}

func (r Record) Aggregate() interview.Aggregate {
	ledger := interview.NewLedger()
	for _, answer := range r.Answers {
		if err := ledger.Append(answer); err != nil {
			break
		}
	}
	return ledger.Aggregate()
}

// Summary is a row of ListSessions.
type Summary struct {
	ID             string
	JobDescription string
	StartedAt      time.Time
	Completed      bool
	QuestionCount  int
	AnswerCount    int
	MeanScore      float64
}

// SaveSession stores the session and replaces its answers.
func (s *Store) SaveSession(ctx context.Context, session interview.Session, answers []interview.Answer) error {
	questions := make([]string, 0, len(session.Questions))
	for _, question := range session.Questions {
		questions = append(questions, question.Text)
	}
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, job_description, questions, started_at, completed, total_elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			job_description = excluded.job_description,
			questions = excluded.questions,
			started_at = excluded.started_at,
			completed = excluded.completed,
			total_elapsed_ms = excluded.total_elapsed_ms`,
		session.ID, session.JobDescription, string(questionsJSON), formatTime(session.StartedAt),
		session.Completed, session.TotalElapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM answers WHERE session_id = ?`, session.ID); err != nil {
		return fmt.Errorf("clear answers: %w", err)
	}
	for _, answer := range answers {
		if err := insertAnswer(ctx, tx, session.ID, answer); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertAnswer(ctx context.Context, tx *sql.Tx, sessionID string, answer interview.Answer) error {
	strengths, err := json.Marshal(nonNil(answer.Evaluation.Strengths))
	if err != nil {
		return fmt.Errorf("encode strengths: %w", err)
	}
	weaknesses, err := json.Marshal(nonNil(answer.Evaluation.Weaknesses))
	if err != nil {
		return fmt.Errorf("encode weaknesses: %w", err)
	}
	suggestions, err := json.Marshal(nonNil(answer.Evaluation.Suggestions))
	if err != nil {
		return fmt.Errorf("encode suggestions: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO answers (session_id, question_index, question, transcript, score, scored,
			strengths, weaknesses, suggestions, elapsed_ms, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, answer.QuestionIndex, answer.Question, answer.Transcript,
		answer.Evaluation.Score, !answer.Evaluation.Unscored,
		string(strengths), string(weaknesses), string(suggestions),
		answer.Elapsed.Milliseconds(), formatTime(answer.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("save answer %d: %w", answer.QuestionIndex, err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (Record, error) {
	var (
		record        Record
		questionsJSON string
		startedAt     string
		elapsedMs     int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, job_description, questions, started_at, completed, total_elapsed_ms
		 FROM sessions WHERE id = ?`, id,
	).Scan(&record.Session.ID, &record.Session.JobDescription, &questionsJSON, &startedAt,
		&record.Session.Completed, &elapsedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	} else if err != nil {
		return Record{}, fmt.Errorf("get session: %w", err)
	}

	var questions []string
	if err := json.Unmarshal([]byte(questionsJSON), &questions); err != nil {
		return Record{}, fmt.Errorf("decode questions: %w", err)
	}
	for i, text := range questions {
		record.Session.Questions = append(record.Session.Questions, interview.Question{Index: i, Text: text})
	}
	if record.Session.StartedAt, err = parseTime(startedAt); err != nil {
		return Record{}, err
	}
	record.Session.TotalElapsed = time.Duration(elapsedMs) * time.Millisecond

	if record.Answers, err = s.listAnswers(ctx, id); err != nil {
		return Record{}, err
	}
	return record, nil
}

func (s *Store) listAnswers(ctx context.Context, sessionID string) ([]interview.Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_index, question, transcript, score, scored, strengths, weaknesses,
			suggestions, elapsed_ms, recorded_at
		 FROM answers WHERE session_id = ? ORDER BY question_index`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var answers []interview.Answer
	for rows.Next() {
		var (
			answer                             interview.Answer
			strengths, weaknesses, suggestions string
			elapsedMs                          int64
			recordedAt                         string
			scored                             bool
		)
		if err := rows.Scan(&answer.QuestionIndex, &answer.Question, &answer.Transcript,
			&answer.Evaluation.Score, &scored, &strengths, &weaknesses,
			&suggestions, &elapsedMs, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answer.Evaluation.Unscored = !scored
		for target, raw := range map[*[]string]string{
			&answer.Evaluation.Strengths:   strengths,
			&answer.Evaluation.Weaknesses:  weaknesses,
			&answer.Evaluation.Suggestions: suggestions,
		} {
			if err := json.Unmarshal([]byte(raw), target); err != nil {
				return nil, fmt.Errorf("decode evaluation lists: %w", err)
			}
		}
		answer.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		if answer.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		answers = append(answers, answer)
	}
	return answers, rows.Err()
}

// ListSessions returns the most recently started sessions first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.job_description, s.questions, s.started_at, s.completed,
			COUNT(a.question_index),
			COALESCE(AVG(CASE WHEN a.scored = 1 THEN a.score END), 0)
		 FROM sessions s
		 LEFT JOIN answers a ON a.session_id = s.id
		 GROUP BY s.id
		 ORDER BY s.started_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			summary       Summary
			questionsJSON string
			startedAt     string
		)
		if err := rows.Scan(&summary.ID, &summary.JobDescription, &questionsJSON, &startedAt,
			&summary.Completed, &summary.AnswerCount, &summary.MeanScore); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var questions []string
		if err := json.Unmarshal([]byte(questionsJSON), &questions); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
		summary.QuestionCount = len(questions)
		if summary.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// MarkComplete flags a stored session as completed.
func (s *Store) MarkComplete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET completed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
