package bus

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type simpleEvent struct {
	typeStr string
	source  string
	ts      time.Time
	data    any
	meta    map[string]any
}

func (e simpleEvent) Type() string             { return e.typeStr }
func (e simpleEvent) Source() string           { return e.source }
func (e simpleEvent) Timestamp() time.Time     { return e.ts }
func (e simpleEvent) Data() any                { return e.data }
func (e simpleEvent) Metadata() map[string]any { return e.meta }

// NewEvent creates a simple Event implementation stamped with the current time.
func NewEvent(typ, src string, data any, metadata map[string]any) Event {
	return NewEventAt(typ, src, time.Now(), data, metadata)
}

// NewEventAt is NewEvent with an explicit timestamp.
func NewEventAt(typ, src string, ts time.Time, data any, metadata map[string]any) Event {
	return simpleEvent{typeStr: typ, source: src, ts: ts, data: data, meta: metadata}
}

// Filtered wraps handler so it only sees events accepted by every filter.
func Filtered(handler EventHandler, filters ...EventFilter) EventHandler {
	return func(e Event) error {
		for _, f := range filters {
			if !f(e) {
				return nil
			}
		}
		return handler(e)
	}
}

// FromSource accepts events published by src.
func FromSource(src string) EventFilter {
	return func(e Event) bool { return e.Source() == src }
}

type subscription struct {
	id        string
	eventType string
	handler   EventHandler
	active    atomic.Bool
	cancel    func()
}

func (s *subscription) ID() string        { return s.id }
func (s *subscription) EventType() string { return s.eventType }
func (s *subscription) IsActive() bool    { return s.active.Load() }
func (s *subscription) Cancel() error {
	if s.active.Swap(false) && s.cancel != nil {
		s.cancel()
	}
	return nil
}

type inMemoryBus struct {
	mu sync.RWMutex
	// eventType -> subID -> subscription
	handlers map[string]map[string]*subscription

	published atomic.Uint64
	delivered atomic.Uint64
	errs      atomic.Uint64
}

// New creates a new EventBus instance.
func New() EventBus {
	return &inMemoryBus{handlers: make(map[string]map[string]*subscription)}
}

func (b *inMemoryBus) Publish(event Event) error {
	etype := event.Type()

	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.handlers[etype])+len(b.handlers[AnyType]))
	for _, s := range b.handlers[etype] {
		subs = append(subs, s)
	}
	if etype != AnyType {
		for _, s := range b.handlers[AnyType] {
			subs = append(subs, s)
		}
	}
	b.mu.RUnlock()

	b.published.Add(1)
	var all error
	for _, s := range subs {
		if !s.IsActive() {
			continue
		}
		b.delivered.Add(1)
		if err := s.handler(event); err != nil {
			all = errors.Join(all, err)
		}
	}
	if all != nil {
		b.errs.Add(1)
	}
	return all
}

func (b *inMemoryBus) Subscribe(eventType string, handler EventHandler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("bus: nil handler")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]*subscription)
	}
	id := uuid.NewString()
	s := &subscription{id: id, eventType: eventType, handler: handler}
	s.active.Store(true)
	s.cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.handlers[eventType]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(b.handlers, eventType)
			}
		}
	}
	b.handlers[eventType][id] = s
	return s, nil
}

func (b *inMemoryBus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

func (b *inMemoryBus) Metrics() Metrics {
	b.mu.RLock()
	var subs uint64
	for _, m := range b.handlers {
		subs += uint64(len(m))
	}
	b.mu.RUnlock()
	return Metrics{
		Published:         b.published.Load(),
		DeliveredHandlers: b.delivered.Load(),
		Errors:            b.errs.Load(),
		SubscribersActive: subs,
	}
}
