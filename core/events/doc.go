// Package events defines the typed interview session event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - session.*
//   - question_speech.*
//   - answer_capture.*
//   - evaluation.*
//   - ledger.*
//
// session events
//
//   - StateChanged (session.state_changed): the orchestrator entered a new
//     state; carries the current question index.
//   - SessionCompleted (session.completed): the last answer was recorded.
//     Emitted exactly once per session with the final ledger snapshot.
//   - SessionCancelled (session.cancelled): the session was torn down before
//     completion.
//   - ErrorRaised (session.error): a recoverable or caller error, classified
//     by ErrorKind.
//
// question_speech events
//
//   - QuestionSpeechStarted (question_speech.started): speech output started
//     playing the question.
//   - QuestionSpeechEnded (question_speech.ended): the question finished
//     playing.
//
// answer_capture events
//
//   - AnswerCaptureStarted (answer_capture.started): the recognizer is
//     listening.
//   - AnswerCaptureEnded (answer_capture.ended): capture stopped; carries
//     the transcript that was accumulated.
//
// evaluation events
//
//   - EvaluationStarted (evaluation.started): an evaluation attempt began.
//   - EvaluationRetrying (evaluation.retrying): an attempt failed and another
//     one is scheduled after Delay.
//   - EvaluationCompleted (evaluation.completed): the evaluator returned a
//     result.
//
// ledger events
//
//   - AnswerRecorded (ledger.answer_recorded): an answer was appended.
package events
