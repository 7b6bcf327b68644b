package bt

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"
)

// openRecord is what the engine remembers about a node between its Start and End.
type openRecord struct {
	node     Node
	depth    int
	openedAt uint64
	memory   map[string]any
}

// openSet maps node identities to their open records. It outlives individual
// ticks: the Tree owns it and lends it to every Tick it creates.
type openSet struct {
	records map[NodeID]*openRecord
}

func newOpenSet() *openSet {
	return &openSet{records: make(map[NodeID]*openRecord)}
}

func (s *openSet) ids() map[NodeID]struct{} {
	ids := make(map[NodeID]struct{}, len(s.records))
	for id := range s.records {
		ids[id] = struct{}{}
	}
	return ids
}

// byDepth returns the open records shallowest first.
func (s *openSet) byDepth() []*openRecord {
	recs := make([]*openRecord, 0, len(s.records))
	for _, r := range s.records {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].depth != recs[j].depth {
			return recs[i].depth < recs[j].depth
		}
		return recs[i].openedAt < recs[j].openedAt
	})
	return recs
}

// Tick is the per-invocation context handed to every hook. A Tick is created
// by Tree.Tick and must not be retained after the hook returns.
type Tick struct {
	ctx   context.Context
	bb    Blackboard
	tree  *Tree
	seq   uint64
	now   time.Time
	clock func() time.Time

	open     *openSet
	prevOpen map[NodeID]struct{}
	visited  map[NodeID]struct{}
	depth    int

	opened, closed int
}

func newTick(ctx context.Context, tree *Tree, seq uint64) *Tick {
	return &Tick{
		ctx:      ctx,
		bb:       tree.bb,
		tree:     tree,
		seq:      seq,
		clock:    tree.clock,
		now:      tree.clock(),
		open:     tree.open,
		prevOpen: tree.open.ids(),
		visited:  make(map[NodeID]struct{}),
	}
}

func (t *Tick) Context() context.Context { return t.ctx }
func (t *Tick) Blackboard() Blackboard   { return t.bb }

// Tree returns the tree being ticked.
func (t *Tick) Tree() *Tree { return t.tree }

// Seq is the 1-based number of the tree tick this context belongs to.
func (t *Tick) Seq() uint64 { return t.seq }

// Now reads the tree clock. Hooks should prefer it to time.Now so tests can
// drive time explicitly.
func (t *Tick) Now() time.Time {
	if t.clock == nil {
		return t.now
	}
	return t.clock()
}

// IsOpen reports whether n is currently between Start and End.
func (t *Tick) IsOpen(n Node) bool {
	_, ok := t.open.records[n.ID()]
	return ok
}

// WasOpen reports whether n was open when this tick began.
func (t *Tick) WasOpen(n Node) bool {
	_, ok := t.prevOpen[n.ID()]
	return ok
}

// Visited reports whether n was executed during this tick.
func (t *Tick) Visited(n Node) bool {
	_, ok := t.visited[n.ID()]
	return ok
}

// Memory returns scratch storage scoped to the current activation of n. It is
// created when n opens and discarded when n closes; nil when n is closed.
func (t *Tick) Memory(n Node) map[string]any {
	rec, ok := t.open.records[n.ID()]
	if !ok {
		return nil
	}
	if rec.memory == nil {
		rec.memory = make(map[string]any)
	}
	return rec.memory
}

func (t *Tick) emit(kind EventKind, n Node, st Status) {
	if t.tree == nil {
		return
	}
	t.tree.emit(Event{
		Kind:     kind,
		Tree:     t.tree.name,
		Seq:      t.seq,
		NodeID:   n.ID(),
		NodeName: n.Name(),
		Category: n.Category(),
		Status:   st,
		Time:     t.now,
	})
}

// Execute drives n through one step of its lifecycle: Start if n is closed,
// Run, then End if the result is terminal. Hook errors are returned unchanged.
func Execute(n Node, t *Tick) (Status, error) {
	if isNil(n) {
		return StatusFailure, ErrNilNode
	}
	id := n.ID()
	if id == (NodeID{}) {
		return StatusFailure, fmt.Errorf("%T: %w", n, ErrUninitializedNode)
	}
	t.visited[id] = struct{}{}

	if _, ok := t.open.records[id]; !ok {
		t.open.records[id] = &openRecord{node: n, depth: t.depth, openedAt: t.seq}
		if err := n.Start(t); err != nil {
			delete(t.open.records, id)
			return StatusFailure, err
		}
		t.opened++
		t.emit(EventOpen, n, StatusRunning)
	}

	t.depth++
	st, err := n.Run(t)
	t.depth--
	if err != nil {
		return StatusFailure, err
	}
	if !st.valid() {
		// The activation cannot continue, so it ends here like an abort.
		err = fmt.Errorf("%s returned %d: %w", n.Name(), int(st), ErrInvalidStatus)
		return StatusFailure, errors.Join(err, closeNode(n, t, EventAbort, StatusFailure))
	}

	if st != StatusRunning {
		if err = closeNode(n, t, EventClose, st); err != nil {
			return st, err
		}
	}
	return st, nil
}

// Abort closes n and every open node beneath it, children first, firing End
// hooks. Closed nodes are skipped. All End errors are joined.
func Abort(n Node, t *Tick) error {
	if isNil(n) {
		return nil
	}
	var errs []error
	if p, ok := n.(Parent); ok {
		for _, ch := range p.Children() {
			if err := Abort(ch, t); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if t.IsOpen(n) {
		if err := closeNode(n, t, EventAbort, StatusFailure); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AbortAll aborts every node in nodes; used by composites to close the
// children they did not reach this tick.
func AbortAll(t *Tick, nodes ...Node) error {
	var errs []error
	for _, n := range nodes {
		if err := Abort(n, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// closeNode runs End while the node memory is still reachable, then forgets
// the node even if End failed.
func closeNode(n Node, t *Tick, kind EventKind, st Status) error {
	err := n.End(t)
	delete(t.open.records, n.ID())
	t.closed++
	t.emit(kind, n, st)
	return err
}

// sweep closes nodes that were open before this tick, were not visited and
// are still open. Shallow nodes go first so their subtrees close children-first.
func (t *Tick) sweep() error {
	var errs []error
	for _, rec := range t.open.byDepth() {
		if !t.WasOpen(rec.node) || t.Visited(rec.node) || !t.IsOpen(rec.node) {
			continue
		}
		if err := Abort(rec.node, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// isNil also catches typed nils such as (*Action)(nil) stored in a Node.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
