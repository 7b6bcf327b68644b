package bt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptyComposites(t *testing.T) {
	require.Equal(t, []Status{StatusSuccess}, tickN(t, newTestTree(t, NewSequence("seq")), 1))
	require.Equal(t, []Status{StatusFailure}, tickN(t, newTestTree(t, NewSelector("sel")), 1))
	require.Equal(t, []Status{StatusSuccess}, tickN(t, newTestTree(t, NewMemSequence("mseq")), 1))
	require.Equal(t, []Status{StatusFailure}, tickN(t, newTestTree(t, NewMemSelector("msel")), 1))
	require.Equal(t, []Status{StatusSuccess}, tickN(t, newTestTree(t, NewParallel("par", ParallelRequireAll)), 1))
}

func TestSequenceShortCircuitsOnFailure(t *testing.T) {
	a := newScripted("a", nil, StatusSuccess)
	b := newScripted("b", nil, StatusFailure)
	c := newScripted("c", nil, StatusSuccess)
	tree := newTestTree(t, NewSequence("seq", a, b, c))

	require.Equal(t, []Status{StatusFailure}, tickN(t, tree, 1))
	require.Equal(t, 1, a.runs)
	require.Equal(t, 1, b.runs)
	require.Zero(t, c.runs)
	require.Zero(t, c.starts)
}

func TestSequenceRunningChildResumesWithoutRestart(t *testing.T) {
	var trace []string
	a := newScripted("a", &trace, StatusRunning, StatusSuccess)
	tree := newTestTree(t, NewSequence("seq", a))

	require.Equal(t, []Status{StatusRunning}, tickN(t, tree, 1))
	require.Equal(t, []string{"a.start", "a.run"}, trace)

	require.Equal(t, []Status{StatusSuccess}, tickN(t, tree, 1))
	require.Equal(t, []string{"a.start", "a.run", "a.run", "a.end"}, trace)
}

func TestSequenceAllSucceed(t *testing.T) {
	a := newScripted("a", nil)
	b := newScripted("b", nil)
	tree := newTestTree(t, NewSequence("seq", a, b))
	require.Equal(t, []Status{StatusSuccess, StatusSuccess}, tickN(t, tree, 2))
	require.Equal(t, 2, a.starts)
	require.Equal(t, 2, b.ends)
}

func TestSelectorStopsAtFirstNonFailure(t *testing.T) {
	var trace []string
	a := newScripted("a", &trace, StatusFailure)
	b := newScripted("b", &trace, StatusSuccess)
	c := newScripted("c", &trace, StatusSuccess)
	tree := newTestTree(t, NewSelector("sel", a, b, c))

	require.Equal(t, []Status{StatusSuccess}, tickN(t, tree, 1))
	// a completes and closes before b is invoked
	require.Equal(t, []string{"a.start", "a.run", "a.end", "b.start", "b.run", "b.end"}, trace)
	require.Zero(t, c.runs)
}

func TestSelectorReturnsRunning(t *testing.T) {
	a := newScripted("a", nil, StatusFailure)
	b := newScripted("b", nil, StatusRunning)
	c := newScripted("c", nil)
	tree := newTestTree(t, NewSelector("sel", a, b, c))

	require.Equal(t, []Status{StatusRunning, StatusRunning}, tickN(t, tree, 2))
	require.Zero(t, c.runs)
	require.Equal(t, 2, a.starts)
	require.Equal(t, 1, b.starts)
	require.Equal(t, []Node{tree.Root(), b}, tree.OpenNodes())
}

func TestSelectorAllFail(t *testing.T) {
	a := newScripted("a", nil, StatusFailure)
	b := newScripted("b", nil, StatusFailure)
	require.Equal(t, []Status{StatusFailure}, tickN(t, newTestTree(t, NewSelector("sel", a, b)), 1))
}

// A child that was running is abandoned when an earlier sibling changes its
// mind; it must be closed on that same tick.
func TestAbandonedRunningChildIsClosed(t *testing.T) {
	var trace []string
	guard := newScripted("guard", &trace, StatusSuccess, StatusFailure)
	work := newScripted("work", &trace, StatusRunning)
	tree := newTestTree(t, NewSequence("seq", guard, work))

	require.Equal(t, []Status{StatusRunning}, tickN(t, tree, 1))
	require.True(t, tree.IsOpen(work))

	trace = nil
	require.Equal(t, []Status{StatusFailure}, tickN(t, tree, 1))
	require.Equal(t, []string{"guard.start", "guard.run", "guard.end", "work.end"}, trace)
	require.Equal(t, 1, work.ends)
	require.Empty(t, tree.OpenNodes())
}

func TestSelectorPreemptsLowerPriorityRunningChild(t *testing.T) {
	high := newScripted("high", nil, StatusFailure, StatusSuccess)
	low := newScripted("low", nil, StatusRunning)
	tree := newTestTree(t, NewSelector("sel", high, low))

	require.Equal(t, []Status{StatusRunning, StatusSuccess}, tickN(t, tree, 2))
	require.Equal(t, 1, low.starts)
	require.Equal(t, 1, low.ends)
	require.Empty(t, tree.OpenNodes())
}

func TestAbandonedSubtreeClosesChildrenFirst(t *testing.T) {
	var trace []string
	guard := newScripted("guard", nil, StatusSuccess, StatusFailure)
	inner := newScripted("inner", &trace, StatusRunning)
	tree := newTestTree(t, NewSequence("seq", guard, NewSequence("sub", inner)))

	tickN(t, tree, 1)
	require.Len(t, tree.OpenNodes(), 3)
	tickN(t, tree, 2)
	require.Equal(t, []string{"inner.start", "inner.run", "inner.end"}, trace)
	require.Empty(t, tree.OpenNodes())
}

func TestMemSequenceResumesAtRunningChild(t *testing.T) {
	a := newScripted("a", nil, StatusSuccess)
	b := newScripted("b", nil, StatusRunning, StatusRunning, StatusSuccess)
	c := newScripted("c", nil, StatusSuccess)
	tree := newTestTree(t, NewMemSequence("mseq", a, b, c))

	require.Equal(t, []Status{StatusRunning, StatusRunning, StatusSuccess}, tickN(t, tree, 3))
	require.Equal(t, 1, a.runs)
	require.Equal(t, 3, b.runs)
	require.Equal(t, 1, c.runs)

	// a fresh activation starts from the first child
	tickN(t, tree, 1)
	require.Equal(t, 2, a.runs)
}

func TestPlainSequenceRechecksEarlierChildren(t *testing.T) {
	a := newScripted("a", nil, StatusSuccess)
	b := newScripted("b", nil, StatusRunning, StatusSuccess)
	tree := newTestTree(t, NewSequence("seq", a, b))
	tickN(t, tree, 2)
	require.Equal(t, 2, a.runs)
}

func TestMemSelectorResumesAtRunningChild(t *testing.T) {
	a := newScripted("a", nil, StatusFailure)
	b := newScripted("b", nil, StatusRunning, StatusFailure)
	c := newScripted("c", nil, StatusSuccess)
	tree := newTestTree(t, NewMemSelector("msel", a, b, c))

	require.Equal(t, []Status{StatusRunning, StatusSuccess}, tickN(t, tree, 2))
	require.Equal(t, 1, a.runs)
	require.Equal(t, 2, b.runs)
	require.Equal(t, 1, c.runs)
}

func TestParallelRequireAll(t *testing.T) {
	a := newScripted("a", nil, StatusSuccess)
	b := newScripted("b", nil, StatusRunning, StatusSuccess)
	tree := newTestTree(t, NewParallel("par", ParallelRequireAll, a, b))

	require.Equal(t, []Status{StatusRunning, StatusSuccess}, tickN(t, tree, 2))
	require.Equal(t, 1, a.runs, "finished children are not re-run within an activation")
	require.Equal(t, 2, b.runs)
}

func TestParallelRequireAllFailsFastAndAbortsRunning(t *testing.T) {
	a := newScripted("a", nil, StatusRunning)
	b := newScripted("b", nil, StatusRunning, StatusFailure)
	tree := newTestTree(t, NewParallel("par", ParallelRequireAll, a, b))

	require.Equal(t, []Status{StatusRunning, StatusFailure}, tickN(t, tree, 2))
	require.Equal(t, 1, a.ends)
	require.Empty(t, tree.OpenNodes())
}

func TestParallelRequireOne(t *testing.T) {
	a := newScripted("a", nil, StatusFailure)
	b := newScripted("b", nil, StatusRunning, StatusSuccess)
	c := newScripted("c", nil, StatusRunning)
	tree := newTestTree(t, NewParallel("par", ParallelRequireOne, a, b, c))

	require.Equal(t, []Status{StatusRunning, StatusSuccess}, tickN(t, tree, 2))
	require.Equal(t, 1, c.ends)
	require.Empty(t, tree.OpenNodes())

	allFail := NewParallel("par", ParallelRequireOne, newScripted("x", nil, StatusFailure), newScripted("y", nil, StatusFailure))
	require.Equal(t, []Status{StatusFailure}, tickN(t, newTestTree(t, allFail), 1))
}

func TestCompositeVisitsChildrenInOrderEveryTick(t *testing.T) {
	var trace []string
	a := newScripted("a", &trace, StatusSuccess)
	b := newScripted("b", &trace, StatusSuccess)
	c := newScripted("c", &trace, StatusSuccess)
	tree := newTestTree(t, NewSequence("seq", a, b, c))

	for i := 0; i < 3; i++ {
		trace = nil
		st, err := tree.Tick(context.Background())
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, st)
		require.Equal(t, []string{"a.start", "a.run", "a.end", "b.start", "b.run", "b.end", "c.start", "c.run", "c.end"}, trace)
	}
}
