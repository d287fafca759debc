package events

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Handler receives notifications from a Bus.
type Handler func(n *Notification)

// Bus is an in-process publish/subscribe hub. Publishing never blocks on
// subscribers: each handler runs on its own goroutine and a panicking
// handler is recovered and logged.
//
// Example:
//
//	sub := events.Default().Subscribe("commerce.Cart.>", func(n *events.Notification) {
//	    log.Printf("cart changed: %s", n.Event)
//	})
//	defer sub.Unsubscribe()
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	logger logrus.FieldLogger
	wg     sync.WaitGroup
}

// Subscription is a registered handler.
type Subscription struct {
	bus     *Bus
	id      uint64
	pattern string
	handler Handler
}

var (
	defaultBus     *Bus
	defaultBusOnce sync.Once
)

// Default returns the process-wide bus.
func Default() *Bus {
	defaultBusOnce.Do(func() {
		defaultBus = NewBus(nil)
	})
	return defaultBus
}

// NewBus creates a bus. A nil logger falls back to the logrus standard logger.
func NewBus(logger logrus.FieldLogger) *Bus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Bus{
		subs:   make(map[uint64]*Subscription),
		logger: logger,
	}
}

// Subscribe registers handler for notifications whose name matches pattern
// (see Match).
func (b *Bus) Subscribe(pattern string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{bus: b, id: b.nextID, pattern: pattern, handler: handler}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs, s.id)
}

// Publish fans n out to every matching subscriber.
func (b *Bus) Publish(n *Notification) {
	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if Match(sub.pattern, n.Name) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		b.wg.Add(1)
		go b.deliver(sub, n)
	}
}

func (b *Bus) deliver(sub *Subscription, n *Notification) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(logrus.Fields{
				"event":   n.Name,
				"pattern": sub.pattern,
				"panic":   r,
			}).Error("Event handler panicked")
		}
	}()
	sub.handler(n)
}

// Emit publishes a notification for the named event.
func (b *Bus) Emit(event string) {
	b.Publish(NewNotification(event))
}

// Wait blocks until every delivery started so far has returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
