// Package broker fans engine events out to registered subscribers.
// Delivery is synchronous; a subscriber that needs buffering owns that
// concern itself.
package broker

import (
	"sync"

	"github.com/credencemarkets/credence/events"
	"github.com/credencemarkets/credence/logging"
)

// Subscriber receives events pushed through the broker.
type Subscriber interface {
	Push(events.Event)
}

// Broker routes events to all subscribers.
type Broker struct {
	log *logging.Logger
	cfg Config

	mu   sync.RWMutex
	subs map[int]Subscriber
	next int
}

// New returns a broker with no subscribers.
func New(log *logging.Logger, cfg Config) *Broker {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	return &Broker{
		log:  log,
		cfg:  cfg,
		subs: map[int]Subscriber{},
	}
}

// Subscribe registers a subscriber and returns its key, to be used with
// Unsubscribe.
func (b *Broker) Subscribe(s Subscriber) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.subs[b.next] = s
	return b.next
}

// Unsubscribe removes the subscriber registered under the given key.
func (b *Broker) Unsubscribe(key int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, key)
}

// Send pushes the event to all subscribers.
func (b *Broker) Send(e events.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.log.GetLevel() == logging.DebugLevel {
		b.log.Debug("sending event", logging.String("type", e.Type().String()))
	}
	for _, sub := range b.subs {
		sub.Push(e)
	}
}
