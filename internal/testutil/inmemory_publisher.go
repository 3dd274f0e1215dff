package testutil

import (
	"context"
	"sync"

	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/types"
)

// PublishedEvent is one outbound event captured by InMemoryPublisher
type PublishedEvent struct {
	RoutingKey string
	EventName  types.ContractEventName
	Body       any
}

// InMemoryPublisher records outbound events instead of sending them. It can
// be told to fail every publish or only publishes to one routing key.
type InMemoryPublisher struct {
	mu       sync.RWMutex
	events   []PublishedEvent
	failAll  error
	failKeys map[string]error
}

func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{failKeys: make(map[string]error)}
}

func (p *InMemoryPublisher) Publish(ctx context.Context, routingKey string, eventName types.ContractEventName, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.failAll; err != nil {
		return publishError(err)
	}
	if err, ok := p.failKeys[routingKey]; ok {
		return publishError(err)
	}

	p.events = append(p.events, PublishedEvent{
		RoutingKey: routingKey,
		EventName:  eventName,
		Body:       body,
	})
	return nil
}

// FailWith makes every following publish fail; nil restores normal behavior
func (p *InMemoryPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAll = err
}

// FailRoutingKey makes publishes to routingKey fail
func (p *InMemoryPublisher) FailRoutingKey(routingKey string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failKeys[routingKey] = err
}

// Events returns a copy of everything published so far
func (p *InMemoryPublisher) Events() []PublishedEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventsTo returns the events published to routingKey
func (p *InMemoryPublisher) EventsTo(routingKey string) []PublishedEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []PublishedEvent
	for _, e := range p.events {
		if e.RoutingKey == routingKey {
			out = append(out, e)
		}
	}
	return out
}

func (p *InMemoryPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
	p.failAll = nil
	p.failKeys = make(map[string]error)
}

func publishError(err error) error {
	return ierr.WithError(err).
		WithHint("Failed to publish outbound event").
		Mark(ierr.ErrPublish)
}
