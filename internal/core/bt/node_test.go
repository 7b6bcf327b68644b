package bt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	require.Equal(t, "Success", StatusSuccess.String())
	require.Equal(t, "Failure", StatusFailure.String())
	require.Equal(t, "Running", StatusRunning.String())
	require.Equal(t, "Invalid", Status(9).String())
	require.True(t, StatusFailure.IsTerminal())
	require.False(t, StatusRunning.IsTerminal())

	var st Status
	require.NoError(t, st.UnmarshalText([]byte("running")))
	require.Equal(t, StatusRunning, st)
	require.ErrorIs(t, st.UnmarshalText([]byte("maybe")), ErrInvalidStatus)
}

func TestNodeIdentity(t *testing.T) {
	a := Succeed("a")
	b := Succeed("a")
	require.NotEqual(t, a.ID(), b.ID())
	require.Equal(t, a.ID(), a.ID())
	require.Equal(t, CategoryAction, a.Category())
}

func TestPropertiesAreCopied(t *testing.T) {
	src := map[string]any{"text": "hello", "count": "3", "wait": 250, "on": "true"}
	n := NewAction("log", nil, WithProperties(src))
	src["text"] = "changed"

	text, ok := n.Properties().String("text")
	require.True(t, ok)
	require.Equal(t, "hello", text)

	count, ok := n.Properties().Int("count")
	require.True(t, ok)
	require.Equal(t, 3, count)

	d, ok := n.Properties().Duration("wait")
	require.True(t, ok)
	require.Equal(t, 250*time.Millisecond, d)

	on, ok := n.Properties().Bool("on")
	require.True(t, ok)
	require.True(t, on)

	_, ok = n.Properties().Get("missing")
	require.False(t, ok)
}

func TestMergePropertiesKeepsOwnKeys(t *testing.T) {
	rep := NewRepeater("rep", 3, false, Succeed("a"))
	rep.MergeProperties(map[string]any{"times": 9, "label": "outer"})

	times, _ := rep.Properties().Int("times")
	require.Equal(t, 3, times)
	label, _ := rep.Properties().String("label")
	require.Equal(t, "outer", label)

	seq := NewSequence("seq")
	seq.MergeProperties(map[string]any{"label": "x"})
	require.Equal(t, map[string]any{"label": "x"}, seq.Properties().Map())
}

func TestStartFiresOncePerActivation(t *testing.T) {
	p := newScripted("p", nil, StatusRunning, StatusRunning, StatusRunning, StatusSuccess)
	tree := newTestTree(t, p)

	require.Equal(t, []Status{StatusRunning, StatusRunning, StatusRunning, StatusSuccess}, tickN(t, tree, 4))
	require.Equal(t, 1, p.starts)
	require.Equal(t, 4, p.runs)
	require.Equal(t, 1, p.ends)
	require.False(t, tree.IsOpen(p))

	// a new activation starts again
	tickN(t, tree, 1)
	require.Equal(t, 2, p.starts)
	require.Equal(t, 2, p.ends)
}

func TestEndFiresOnlyOnTerminalTick(t *testing.T) {
	var trace []string
	p := newScripted("a", &trace, StatusRunning, StatusFailure)
	tree := newTestTree(t, NewSequence("seq", p))

	tickN(t, tree, 1)
	require.Equal(t, []string{"a.start", "a.run"}, trace)
	require.True(t, tree.IsOpen(p))

	tickN(t, tree, 1)
	require.Equal(t, []string{"a.start", "a.run", "a.run", "a.end"}, trace)
	require.Empty(t, tree.OpenNodes())
}

func TestHookErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	after := newScripted("after", nil)

	failing := NewAction("failing", func(*Tick) (Status, error) { return StatusSuccess, boom })
	tree := newTestTree(t, NewSequence("seq", failing, after))
	_, err := tree.Tick(context.Background())
	require.ErrorIs(t, err, boom)
	require.Zero(t, after.runs)

	startErr := NewAction("bad-start", nil, OnStart(func(*Tick) error { return boom }))
	tree = newTestTree(t, startErr)
	_, err = tree.Tick(context.Background())
	require.ErrorIs(t, err, boom)
	require.False(t, tree.IsOpen(startErr))
}

func TestInvalidStatusIsAnError(t *testing.T) {
	odd := NewAction("odd", func(*Tick) (Status, error) { return Status(42), nil })
	tree := newTestTree(t, odd)
	_, err := tree.Tick(context.Background())
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestInvalidStatusClosesTheNode(t *testing.T) {
	var trace []string
	odd := newScripted("odd", &trace, Status(42))
	seq := NewSequence("seq", odd)
	tree := newTestTree(t, seq)

	st, err := tree.Tick(context.Background())
	require.ErrorIs(t, err, ErrInvalidStatus)
	require.Equal(t, StatusFailure, st)
	require.False(t, tree.IsOpen(odd))
	require.Equal(t, 1, odd.ends)
	require.Equal(t, []string{"odd.start", "odd.run", "odd.end"}, trace)

	// the failing ancestor stays open until the caller aborts
	require.Equal(t, []Node{seq}, tree.OpenNodes())
	require.NoError(t, tree.Abort(context.Background()))
	require.Empty(t, tree.OpenNodes())
}

func TestUninitializedNodeIsRejected(t *testing.T) {
	zero := &scripted{}
	_, err := NewTree(NewSequence("seq", zero), nil)
	require.ErrorIs(t, err, ErrUninitializedNode)
}

func TestMemoryLivesWhileOpen(t *testing.T) {
	var seen []any
	counter := NewAction("counter", func(tk *Tick) (Status, error) {
		mem := tk.Memory(tk.Tree().Root())
		n, _ := mem["n"].(int)
		n++
		mem["n"] = n
		seen = append(seen, n)
		if n == 3 {
			return StatusSuccess, nil
		}
		return StatusRunning, nil
	})
	tree := newTestTree(t, counter)
	tickN(t, tree, 4)
	// the fourth tick is a new activation with fresh memory
	require.Equal(t, []any{1, 2, 3, 1}, seen)
}

func TestClockAndSeq(t *testing.T) {
	clock := newFakeClock()
	var seqs []uint64
	var times []time.Time
	a := NewAction("a", func(tk *Tick) (Status, error) {
		seqs = append(seqs, tk.Seq())
		times = append(times, tk.Now())
		return StatusSuccess, nil
	})
	tree := newTestTree(t, a, WithClock(clock.Now))
	tickN(t, tree, 1)
	clock.Advance(time.Second)
	tickN(t, tree, 1)
	require.Equal(t, []uint64{1, 2}, seqs)
	require.Equal(t, time.Second, times[1].Sub(times[0]))
	require.EqualValues(t, 2, tree.Seq())
}
