package service

import (
	log "github.com/sirupsen/logrus"

	"pcstore/pkg/common/domain"
)

// eventBuffer holds the events raised inside a transaction until it commits.
type eventBuffer struct {
	events []domain.Event
}

func (b *eventBuffer) Dispatch(event domain.Event) error {
	b.events = append(b.events, event)
	return nil
}

func dispatchEvents(dispatcher domain.EventDispatcher, buffer *eventBuffer) {
	if buffer == nil {
		return
	}
	for _, event := range buffer.events {
		if err := dispatcher.Dispatch(event); err != nil {
			log.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
		}
	}
}
