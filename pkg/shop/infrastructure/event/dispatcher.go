package event

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"pcstore/pkg/common/domain"
)

type Handler func(event domain.Event) error

// Dispatcher logs every published event and fans it out to the handlers
// subscribed to its type.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   log.FieldLogger
}

func NewDispatcher(logger log.FieldLogger) *Dispatcher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Dispatcher{handlers: make(map[string][]Handler), logger: logger}
}

func (d *Dispatcher) Subscribe(eventType string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *Dispatcher) Dispatch(event domain.Event) error {
	d.logger.WithFields(log.Fields{
		"event":   event.Type(),
		"payload": event,
	}).Info("domain event")

	d.mu.RLock()
	handlers := append([]Handler(nil), d.handlers[event.Type()]...)
	d.mu.RUnlock()

	var firstErr error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			d.logger.WithError(err).WithField("event", event.Type()).Error("event handler failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

var _ domain.EventDispatcher = (*Dispatcher)(nil)
