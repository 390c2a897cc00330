package pubsub

import "context"

const (
	// QuestionEvent is published when a user question enters the pipeline.
	QuestionEvent EventType = "question"
	// AnswerEvent is published when a turn completes with an answer.
	AnswerEvent EventType = "answer"
	// ErrorEvent is published when a turn fails; the payload carries the
	// user-visible error text.
	ErrorEvent EventType = "error"
)

type (
	// EventType identifies what happened.
	EventType string

	// Event is one occurrence with its typed payload.
	Event[T any] struct {
		Type    EventType
		Payload T
	}

	// Publisher publishes events to all subscribers.
	Publisher[T any] interface {
		Publish(EventType, T)
	}

	// Subscriber grants access to the event stream.
	Subscriber[T any] interface {
		Subscribe(context.Context) <-chan Event[T]
	}
)
