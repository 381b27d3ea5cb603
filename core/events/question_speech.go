package events

const (
	// KindQuestionSpeechStarted identifies start of question playback.
	KindQuestionSpeechStarted Kind = "question_speech.started"
	// KindQuestionSpeechEnded identifies end of question playback.
	KindQuestionSpeechEnded Kind = "question_speech.ended"
)

// QuestionSpeechStarted marks when the question started playing.
type QuestionSpeechStarted struct {
	Base
	QuestionIndex int
	Text          string
}

// NewQuestionSpeechStarted creates a question speech started event.
func NewQuestionSpeechStarted(questionIndex int, text string) QuestionSpeechStarted {
	return QuestionSpeechStarted{Base: NewBase(KindQuestionSpeechStarted), QuestionIndex: questionIndex, Text: text}
}

// QuestionSpeechEnded marks when the question finished playing.
type QuestionSpeechEnded struct {
	Base
	QuestionIndex int
	Text          string
}

// NewQuestionSpeechEnded creates a question speech ended event.
func NewQuestionSpeechEnded(questionIndex int, text string) QuestionSpeechEnded {
	return QuestionSpeechEnded{Base: NewBase(KindQuestionSpeechEnded), QuestionIndex: questionIndex, Text: text}
}
