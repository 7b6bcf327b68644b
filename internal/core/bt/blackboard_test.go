package bt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapBlackboard(t *testing.T) {
	bb := NewBlackboard(map[string]any{"b": true})
	bb.Set("s", "text")
	bb.Set("i", 42)
	bb.Set("f", 1.5)

	s, ok := bb.Get("s")
	require.True(t, ok)
	require.Equal(t, "text", s)

	require.Equal(t, []string{"b", "f", "i", "s"}, bb.Keys())
	require.EqualValues(t, 3, bb.Version())

	bb.Delete("s")
	bb.Delete("missing")
	_, ok = bb.Get("s")
	require.False(t, ok)
	require.EqualValues(t, 4, bb.Version())
}

func TestSnapshotIsACopy(t *testing.T) {
	initial := map[string]any{"hp": 10}
	bb := NewBlackboard(initial)
	initial["hp"] = 99

	snap := bb.Snapshot()
	require.Equal(t, map[string]any{"hp": 10}, snap)

	snap["hp"] = 1
	hp, _ := bb.Get("hp")
	require.Equal(t, 10, hp)
}
