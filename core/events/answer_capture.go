package events

const (
	// KindAnswerCaptureStarted identifies start of answer capture.
	KindAnswerCaptureStarted Kind = "answer_capture.started"
	// KindAnswerCaptureEnded identifies end of answer capture.
	KindAnswerCaptureEnded Kind = "answer_capture.ended"
)

// AnswerCaptureStarted marks when the recognizer started listening.
type AnswerCaptureStarted struct {
	Base
	QuestionIndex int
}

// NewAnswerCaptureStarted creates an answer capture started event.
func NewAnswerCaptureStarted(questionIndex int) AnswerCaptureStarted {
	return AnswerCaptureStarted{Base: NewBase(KindAnswerCaptureStarted), QuestionIndex: questionIndex}
}

// AnswerCaptureEnded carries the transcript accumulated when capture ended.
type AnswerCaptureEnded struct {
	Base
	QuestionIndex int
	Transcript    string
}

// NewAnswerCaptureEnded creates an answer capture ended event.
func NewAnswerCaptureEnded(questionIndex int, transcript string) AnswerCaptureEnded {
	return AnswerCaptureEnded{Base: NewBase(KindAnswerCaptureEnded), QuestionIndex: questionIndex, Transcript: transcript}
}
