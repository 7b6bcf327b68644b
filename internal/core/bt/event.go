package bt

import "time"

// EventKind names a lifecycle transition.
type EventKind string

const (
	EventOpen  EventKind = "open"
	EventClose EventKind = "close"
	EventAbort EventKind = "abort"
	EventTick  EventKind = "tick"
)

// Event describes a lifecycle transition. Tick events carry the root status
// and the open/close counters of the whole tick; node fields are those of the root.
type Event struct {
	Kind     EventKind     `json:"kind"`
	Tree     string        `json:"tree"`
	Seq      uint64        `json:"seq"`
	NodeID   NodeID        `json:"node_id"`
	NodeName string        `json:"node_name,omitempty"`
	Category Category      `json:"category,omitempty"`
	Status   Status        `json:"status"`
	Time     time.Time     `json:"time"`
	Opened   int           `json:"opened,omitempty"`
	Closed   int           `json:"closed,omitempty"`
	Open     int           `json:"open,omitempty"`
	Elapsed  time.Duration `json:"elapsed,omitempty"`
	Err      string        `json:"error,omitempty"`

	// BlackboardVersion is set on tick events when the blackboard is Versioned.
	BlackboardVersion int64 `json:"blackboard_version,omitempty"`
}

// Listener receives lifecycle events synchronously on the tick goroutine.
type Listener func(Event)
