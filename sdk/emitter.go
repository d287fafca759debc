package sdk

import (
	"github.com/birbparty/birb-commerce/events"
	"github.com/sirupsen/logrus"
)

// EventEmitter receives the names of events the API reports in responses.
// Implementations must not block; the client calls Emit on the request's
// goroutine and does not observe its outcome.
//
// *events.Bus and *events.NATSClient both satisfy EventEmitter.
type EventEmitter interface {
	Emit(name string)
}

// EventEmitterFunc adapts a plain function to EventEmitter.
type EventEmitterFunc func(name string)

// Emit calls f(name)
func (f EventEmitterFunc) Emit(name string) {
	f(name)
}

// resolveEmitter picks the emitter for a configuration: the callback wins
// over an emitter, and the process-wide bus is the fallback.
func resolveEmitter(cfg *Config) EventEmitter {
	switch {
	case cfg.DisableEvents:
		return nil
	case cfg.EventCallback != nil:
		return EventEmitterFunc(cfg.EventCallback)
	case cfg.EventEmitter != nil:
		return cfg.EventEmitter
	}
	return events.Default()
}

// safeEmit delivers name to emitter and contains any panic it raises.
func safeEmit(emitter EventEmitter, logger logrus.FieldLogger, name string) {
	if emitter == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{
				"event": name,
				"panic": r,
			}).Error("Event emitter panicked")
		}
	}()
	emitter.Emit(name)
}
