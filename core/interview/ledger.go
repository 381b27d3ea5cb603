package interview

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/copier"
)

var (
	ErrOutOfOrderAppend = errors.New("ledger append out of order")
	ErrLedgerFrozen     = errors.New("ledger is frozen")
)

// Aggregate summarises a ledger.
type Aggregate struct {
	Count       int
	ScoredCount int
	// MeanScore is averaged over scored answers only; unscored sentinels do
	// not drag the mean to zero.
	MeanScore    float64
	TotalElapsed time.Duration
}

// Ledger is the append-only, index-ordered record of answers for one session.
type Ledger struct {
	mu      sync.RWMutex
	answers []Answer
	frozen  bool
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Append records answer. The answer's question index must equal the current
// length of the ledger.
func (l *Ledger) Append(answer Answer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen {
		return ErrLedgerFrozen
	}
	if answer.QuestionIndex != len(l.answers) {
		return fmt.Errorf("%w: got index %d, expected %d", ErrOutOfOrderAppend, answer.QuestionIndex, len(l.answers))
	}

	var stored Answer
	if err := copier.CopyWithOption(&stored, &answer, copier.Option{DeepCopy: true}); err != nil {
		return fmt.Errorf("failed to store answer: %w", err)
	}
	l.answers = append(l.answers, stored)
	return nil
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.answers)
}

// Entries returns a deep copy of the answers recorded so far.
func (l *Ledger) Entries() []Answer {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]Answer, 0, len(l.answers))
	if err := copier.CopyWithOption(&entries, &l.answers, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched kinds, which cannot happen for
		// identical slice types
		entries = append(entries[:0], l.answers...)
	}
	return entries
}

func (l *Ledger) Aggregate() Aggregate {
	l.mu.RLock()
	defer l.mu.RUnlock()

	aggregate := Aggregate{Count: len(l.answers)}
	total := 0
	for _, answer := range l.answers {
		aggregate.TotalElapsed += answer.Elapsed
		if answer.Evaluation.IsUnscored() {
			continue
		}
		aggregate.ScoredCount++
		total += answer.Evaluation.Score
	}
	if aggregate.ScoredCount > 0 {
		aggregate.MeanScore = float64(total) / float64(aggregate.ScoredCount)
	}

	return aggregate
}

// Freeze makes the ledger read-only. It is called once the session completes
// and the ledger is handed off to reporting.
func (l *Ledger) Freeze() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozen = true
}

func (l *Ledger) IsFrozen() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frozen
}
