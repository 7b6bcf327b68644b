package bt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scripted is a leaf that replays a script of statuses and counts hook calls.
type scripted struct {
	BaseNode
	script []Status
	starts int
	runs   int
	ends   int
	trace  *[]string
}

func newScripted(name string, trace *[]string, script ...Status) *scripted {
	return &scripted{BaseNode: NewBaseNode(name, CategoryAction, nil), script: script, trace: trace}
}

func (p *scripted) record(hook string) {
	if p.trace != nil {
		*p.trace = append(*p.trace, p.name+"."+hook)
	}
}

func (p *scripted) Start(*Tick) error {
	p.starts++
	p.record("start")
	return nil
}

func (p *scripted) Run(*Tick) (Status, error) {
	st := StatusSuccess
	if len(p.script) > 0 {
		st = p.script[0]
		if len(p.script) > 1 {
			p.script = p.script[1:]
		}
	}
	p.runs++
	p.record("run")
	return st, nil
}

func (p *scripted) End(*Tick) error {
	p.ends++
	p.record("end")
	return nil
}

func newTestTree(t *testing.T, root Node, opts ...TreeOption) *Tree {
	t.Helper()
	tree, err := NewTree(root, nil, opts...)
	require.NoError(t, err)
	return tree
}

func tickN(t *testing.T, tree *Tree, n int) []Status {
	t.Helper()
	out := make([]Status, 0, n)
	for i := 0; i < n; i++ {
		st, err := tree.Tick(context.Background())
		require.NoError(t, err)
		out = append(out, st)
	}
	return out
}

// fakeClock is advanced explicitly by tests.
type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
