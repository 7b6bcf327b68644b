package bt

import (
	"fmt"
	"time"
)

// Decorator wraps exactly one child it exclusively owns.
type Decorator struct {
	BaseNode
	child Node
}

func newDecorator(name string, props map[string]any, child Node) Decorator {
	return Decorator{BaseNode: NewBaseNode(name, CategoryDecorator, props), child: child}
}

func (d *Decorator) Child() Node { return d.child }

func (d *Decorator) Children() []Node {
	if isNil(d.child) {
		return nil
	}
	return []Node{d.child}
}

// execChild runs the child or reports the configuration error of a missing one.
func (d *Decorator) execChild(kind string, t *Tick) (Status, error) {
	if isNil(d.child) {
		return StatusFailure, fmt.Errorf("%s %q: %w", kind, d.name, ErrMissingChild)
	}
	return Execute(d.child, t)
}

// Inverter swaps Success and Failure; Running passes through.
type Inverter struct{ Decorator }

func NewInverter(name string, child Node) *Inverter {
	return &Inverter{Decorator: newDecorator(name, nil, child)}
}

func (d *Inverter) Run(t *Tick) (Status, error) {
	st, err := d.execChild("inverter", t)
	if err != nil {
		return st, err
	}
	switch st {
	case StatusSuccess:
		return StatusFailure, nil
	case StatusFailure:
		return StatusSuccess, nil
	default:
		return st, nil
	}
}

// Succeeder reports Success for any terminal child result.
type Succeeder struct{ Decorator }

func NewSucceeder(name string, child Node) *Succeeder {
	return &Succeeder{Decorator: newDecorator(name, nil, child)}
}

func (d *Succeeder) Run(t *Tick) (Status, error) {
	st, err := d.execChild("succeeder", t)
	if err != nil || st == StatusRunning {
		return st, err
	}
	return StatusSuccess, nil
}

// Repeater runs its child until it completed Times times. A running child
// suspends the loop; the count survives until the repeater closes.
type Repeater struct {
	Decorator
	times         int
	stopOnFailure bool
}

func NewRepeater(name string, times int, stopOnFailure bool, child Node) *Repeater {
	return &Repeater{
		Decorator: newDecorator(name, map[string]any{
			"times":           times,
			"stop_on_failure": stopOnFailure,
		}, child),
		times:         times,
		stopOnFailure: stopOnFailure,
	}
}

func (d *Repeater) Times() int { return d.times }

func (d *Repeater) Run(t *Tick) (Status, error) {
	if d.times <= 0 {
		return StatusFailure, fmt.Errorf("repeater %q: %w", d.name, ErrInvalidRepeat)
	}
	mem := t.Memory(d)
	count, _ := mem["count"].(int)
	for count < d.times {
		st, err := d.execChild("repeater", t)
		if err != nil {
			return st, err
		}
		switch {
		case st == StatusRunning:
			mem["count"] = count
			return StatusRunning, nil
		case st == StatusFailure && d.stopOnFailure:
			return StatusFailure, nil
		}
		count++
	}
	return StatusSuccess, nil
}

const memStartedAt = "started_at"

// MaxTime fails once its activation has lasted longer than the limit, aborting
// the child if it is still running.
type MaxTime struct {
	Decorator
	limit time.Duration
}

func NewMaxTime(name string, limit time.Duration, child Node) *MaxTime {
	return &MaxTime{
		Decorator: newDecorator(name, map[string]any{"max": limit}, child),
		limit:     limit,
	}
}

func (d *MaxTime) Limit() time.Duration { return d.limit }

func (d *MaxTime) Start(t *Tick) error {
	t.Memory(d)[memStartedAt] = t.Now()
	return nil
}

func (d *MaxTime) Run(t *Tick) (Status, error) {
	st, err := d.execChild("max_time", t)
	if err != nil {
		return st, err
	}
	started, _ := t.Memory(d)[memStartedAt].(time.Time)
	if t.Now().Sub(started) > d.limit {
		return StatusFailure, Abort(d.child, t)
	}
	return st, nil
}
