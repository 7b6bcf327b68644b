package bt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/bhtree/internal/core/observability/log"
)

// Tree owns a root node, the blackboard and the open-node bookkeeping that
// carries Running activations from one Tick call to the next.
//
// A Tree is not safe for concurrent ticking; callers serialize Tick and Abort.
type Tree struct {
	id        uuid.UUID
	name      string
	root      Node
	bb        Blackboard
	open      *openSet
	seq       uint64
	clock     func() time.Time
	logger    log.Log
	listeners []Listener
}

// TreeOption configures a Tree at construction.
type TreeOption func(t *Tree)

func WithName(name string) TreeOption { return func(t *Tree) { t.name = name } }

// WithClock replaces time.Now as the time source exposed through Tick.Now.
func WithClock(clock func() time.Time) TreeOption { return func(t *Tree) { t.clock = clock } }

// WithLogger logs every lifecycle transition at debug level.
func WithLogger(logger log.Log) TreeOption { return func(t *Tree) { t.logger = logger } }

func WithListener(l Listener) TreeOption {
	return func(t *Tree) { t.listeners = append(t.listeners, l) }
}

// NewTree validates root and returns a tree ready to tick. A nil blackboard
// is replaced by an empty MapBlackboard.
func NewTree(root Node, bb Blackboard, opts ...TreeOption) (*Tree, error) {
	if isNil(root) {
		return nil, ErrNilRoot
	}
	if err := Validate(root); err != nil {
		return nil, fmt.Errorf("invalid tree: %w", err)
	}
	if bb == nil {
		bb = NewBlackboard(nil)
	}
	t := &Tree{
		id:    uuid.New(),
		root:  root,
		bb:    bb,
		open:  newOpenSet(),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.name == "" {
		t.name = root.Name()
	}
	if t.logger != nil {
		t.logger = t.logger.With(log.String("tree", t.name))
	}
	return t, nil
}

func (t *Tree) ID() uuid.UUID          { return t.id }
func (t *Tree) Name() string           { return t.name }
func (t *Tree) Root() Node             { return t.root }
func (t *Tree) Blackboard() Blackboard { return t.bb }

// Seq returns the number of ticks performed so far.
func (t *Tree) Seq() uint64 { return t.seq }

// AddListener registers l for subsequent events.
func (t *Tree) AddListener(l Listener) { t.listeners = append(t.listeners, l) }

// IsOpen reports whether n is currently running.
func (t *Tree) IsOpen(n Node) bool {
	_, ok := t.open.records[n.ID()]
	return ok
}

// OpenNodes lists the open nodes, shallowest first.
func (t *Tree) OpenNodes() []Node {
	recs := t.open.byDepth()
	nodes := make([]Node, len(recs))
	for i, r := range recs {
		nodes[i] = r.node
	}
	return nodes
}

// Tick performs one synchronous walk from the root. Nodes left open from the
// previous tick but not reached this time are closed before Tick returns.
func (t *Tree) Tick(ctx context.Context) (Status, error) {
	t.seq++
	tk := newTick(ctx, t, t.seq)

	st, err := Execute(t.root, tk)
	if err == nil {
		err = tk.sweep()
	}

	ev := Event{
		Kind:     EventTick,
		Tree:     t.name,
		Seq:      tk.seq,
		NodeID:   t.root.ID(),
		NodeName: t.root.Name(),
		Category: t.root.Category(),
		Status:   st,
		Time:     tk.now,
		Opened:   tk.opened,
		Closed:   tk.closed,
		Open:     len(t.open.records),
		Elapsed:  t.clock().Sub(tk.now),
	}
	if v, ok := t.bb.(Versioned); ok {
		ev.BlackboardVersion = v.Version()
	}
	if err != nil {
		ev.Err = err.Error()
	}
	t.emit(ev)
	return st, err
}

// Abort closes every open node, firing End hooks children-first. The tree
// can be ticked again afterwards and starts from a clean state.
func (t *Tree) Abort(ctx context.Context) error {
	tk := newTick(ctx, t, t.seq)
	var errs []error
	for _, rec := range t.open.byDepth() {
		if _, still := t.open.records[rec.node.ID()]; !still {
			continue
		}
		if err := Abort(rec.node, tk); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("abort %s: %w", t.name, errors.Join(errs...))
	}
	return nil
}

func (t *Tree) emit(ev Event) {
	if t.logger != nil {
		fields := []log.Field{
			log.String("event", string(ev.Kind)),
			log.Uint64("seq", ev.Seq),
			log.String("node", ev.NodeName),
			log.Stringer("status", ev.Status),
		}
		if ev.Kind == EventTick {
			fields = append(fields, log.Int("opened", ev.Opened), log.Int("closed", ev.Closed), log.Int("open", ev.Open))
		}
		if ev.Err != "" {
			fields = append(fields, log.String("error", ev.Err))
		}
		t.logger.Debug("bt lifecycle", fields...)
	}
	for _, l := range t.listeners {
		l(ev)
	}
}
