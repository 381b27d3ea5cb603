package orchestration

import "github.com/koscakluka/ema-interview/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts BeginOptions) eventEmitter {
	return func(event events.Event) {
		if opts.onEvent != nil {
			opts.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.StateChanged:
			if opts.onStateChanged != nil {
				opts.onStateChanged(typedEvent.State, typedEvent.QuestionIndex)
			}
		case events.ErrorRaised:
			if opts.onError != nil {
				opts.onError(typedEvent.ErrorKind, typedEvent.Message, typedEvent.Suggestion)
			}
		case events.SessionCompleted:
			if opts.onSessionComplete != nil {
				opts.onSessionComplete(typedEvent.Answers, typedEvent.Aggregate, typedEvent.TotalElapsed)
			}
		case events.SessionCancelled:
			if opts.onCancellation != nil {
				opts.onCancellation()
			}
		}
	}
}
