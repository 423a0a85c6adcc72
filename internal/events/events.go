// Package events is the change feed: an in-process broker that list views
// subscribe to, optionally forwarding every event to RabbitMQ.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/fleetstock/internal/metrics"
)

// Type names a change feed event. It doubles as the AMQP routing key.
type Type string

const (
	ItemCreated      Type = "item.created"
	ItemUpdated      Type = "item.updated"
	ItemDeleted      Type = "item.deleted"
	StockChanged     Type = "stock.changed"
	ReferenceCreated Type = "reference.created"
	ReferenceDeleted Type = "reference.deleted"
	SignedIn         Type = "session.signed_in"
	SignedOut        Type = "session.signed_out"
)

// Event is one change notification.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(t Type, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Publisher accepts events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

const defaultBuffer = 64

// Broker fans events out to in-process subscribers and forwards them to
// external publishers. A full subscriber loses the event instead of
// blocking the writer.
type Broker struct {
	mu         sync.RWMutex
	subs       map[int]chan Event
	nextID     int
	forwarders []Publisher
	logger     *zap.Logger
}

// NewBroker builds a broker forwarding to the given publishers.
func NewBroker(logger *zap.Logger, forwarders ...Publisher) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		subs:       make(map[int]chan Event),
		forwarders: forwarders,
		logger:     logger,
	}
}

// Subscribe registers a subscriber. The returned cancel func closes the channel.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers evt to every subscriber, then to each forwarder. Forwarder
// failures are logged and returned as the first error seen.
func (b *Broker) Publish(ctx context.Context, evt Event) error {
	b.mu.RLock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			metrics.EventsDropped.Inc()
			b.logger.Debug("subscriber full, event dropped", zap.String("type", string(evt.Type)))
		}
	}
	b.mu.RUnlock()

	var firstErr error
	for _, fwd := range b.forwarders {
		if err := fwd.Publish(ctx, evt); err != nil {
			b.logger.Warn("event forward failed", zap.String("type", string(evt.Type)), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Subscribers reports the current subscriber count.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
