package bt

import "time"

// RunFunc is the core behavior of a function-backed leaf.
type RunFunc func(t *Tick) (Status, error)

// HookFunc is an optional Start or End hook of a function-backed leaf.
type HookFunc func(t *Tick) error

// Action is a leaf whose behavior is supplied as functions.
type Action struct {
	BaseNode
	run   RunFunc
	start HookFunc
	end   HookFunc
}

// ActionOption configures an Action at construction.
type ActionOption func(a *Action)

// OnStart sets the hook fired when the action opens.
func OnStart(fn HookFunc) ActionOption { return func(a *Action) { a.start = fn } }

// OnEnd sets the hook fired when the action closes.
func OnEnd(fn HookFunc) ActionOption { return func(a *Action) { a.end = fn } }

// WithProperties attaches configuration values to the action.
func WithProperties(props map[string]any) ActionOption {
	return func(a *Action) { a.props = NewProperties(props) }
}

func NewAction(name string, run RunFunc, opts ...ActionOption) *Action {
	a := &Action{BaseNode: NewBaseNode(name, CategoryAction, nil), run: run}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Action) Start(t *Tick) error {
	if a.start == nil {
		return nil
	}
	return a.start(t)
}

func (a *Action) Run(t *Tick) (Status, error) {
	if a.run == nil {
		return StatusSuccess, nil
	}
	return a.run(t)
}

func (a *Action) End(t *Tick) error {
	if a.end == nil {
		return nil
	}
	return a.end(t)
}

// Condition is a leaf that maps a predicate to Success or Failure.
type Condition struct {
	BaseNode
	fn func(t *Tick) (bool, error)
}

func NewCondition(name string, fn func(t *Tick) (bool, error)) *Condition {
	return &Condition{BaseNode: NewBaseNode(name, CategoryCondition, nil), fn: fn}
}

func (c *Condition) Run(t *Tick) (Status, error) {
	if c.fn == nil {
		return StatusFailure, nil
	}
	ok, err := c.fn(t)
	if err != nil {
		return StatusFailure, err
	}
	if ok {
		return StatusSuccess, nil
	}
	return StatusFailure, nil
}

// Wait stays running until its duration has elapsed since it opened.
type Wait struct {
	BaseNode
	d time.Duration
}

func NewWait(name string, d time.Duration) *Wait {
	return &Wait{BaseNode: NewBaseNode(name, CategoryAction, map[string]any{"duration": d}), d: d}
}

func (w *Wait) Start(t *Tick) error {
	t.Memory(w)[memStartedAt] = t.Now()
	return nil
}

func (w *Wait) Run(t *Tick) (Status, error) {
	started, _ := t.Memory(w)[memStartedAt].(time.Time)
	if t.Now().Sub(started) >= w.d {
		return StatusSuccess, nil
	}
	return StatusRunning, nil
}

// Succeed, Fail and Hold are constant leaves, handy as placeholders.
func Succeed(name string) *Action {
	return NewAction(name, func(*Tick) (Status, error) { return StatusSuccess, nil })
}

func Fail(name string) *Action {
	return NewAction(name, func(*Tick) (Status, error) { return StatusFailure, nil })
}

func Hold(name string) *Action {
	return NewAction(name, func(*Tick) (Status, error) { return StatusRunning, nil })
}
