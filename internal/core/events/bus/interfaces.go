package bus

import "time"

// Event types published for behavior tree activity. Data carries the bt.Event.
const (
	TypeNodeOpen  = "bt.open"
	TypeNodeClose = "bt.close"
	TypeNodeAbort = "bt.abort"
	TypeTick      = "bt.tick"
	TypeReload    = "bt.reload"

	// AnyType subscribes to every event type.
	AnyType = "*"
)

// EventBus is a thread-safe, in-process pub/sub bus.
//
// Handlers subscribe by Event.Type() or with AnyType. Delivery is synchronous
// in the publisher's goroutine, so handlers should be quick or hand the event
// off. Handler errors are joined and returned from Publish.
type EventBus interface {
	// Publish delivers the event to every active subscriber of its type and to
	// AnyType subscribers.
	Publish(event Event) error
	// Subscribe registers a handler for eventType.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels sub. A nil subscription is ignored.
	Unsubscribe(sub Subscription) error
	// Metrics returns a snapshot of the counters.
	Metrics() Metrics
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
	Metadata() map[string]any
}

type (
	EventHandler func(event Event) error
	// EventFilter decides whether a subscriber wants an event.
	EventFilter func(event Event) bool
)

// Subscription is a registered handler. Cancel is idempotent.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	Cancel() error
}

// Metrics are best-effort counters.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}
