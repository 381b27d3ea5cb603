package events

import "github.com/koscakluka/ema-interview/core/interview"

// KindAnswerRecorded identifies an answer appended to the session ledger.
const KindAnswerRecorded Kind = "ledger.answer_recorded"

// AnswerRecorded carries the answer that was appended.
type AnswerRecorded struct {
	Base
	Answer interview.Answer
}

// NewAnswerRecorded creates an answer recorded event.
func NewAnswerRecorded(answer interview.Answer) AnswerRecorded {
	return AnswerRecorded{Base: NewBase(KindAnswerRecorded), Answer: answer}
}
