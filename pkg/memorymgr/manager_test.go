package memorymgr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTouch_OrdersByRecency(t *testing.T) {
	m := New(Config{})
	m.Touch("a")
	m.Touch("b")
	m.Touch("c")
	m.Touch("a") // re-touching a moves it to the back

	victims := m.GetNodesToEvict()
	require.Nil(t, victims, "no MaxMemoryNodes set, nothing should be evicted")
	require.Equal(t, 3, m.Len())
}

func TestGetNodesToEvict_OldestFirst(t *testing.T) {
	m := New(Config{MaxMemoryNodes: 2})
	m.Touch("a")
	m.Touch("b")
	m.Touch("c")
	m.Touch("d")

	victims := m.GetNodesToEvict()
	require.Equal(t, []string{"a", "b"}, victims)
}

func TestGetNodesToEvict_Buffer(t *testing.T) {
	m := New(Config{MaxMemoryNodes: 2, Buffer: 1})
	m.Touch("a")
	m.Touch("b")
	m.Touch("c")
	m.Touch("d")

	victims := m.GetNodesToEvict()
	require.Equal(t, []string{"a", "b", "c"}, victims)
}

func TestForget_RemovesFromRecency(t *testing.T) {
	m := New(Config{MaxMemoryNodes: 1})
	m.Touch("a")
	m.Touch("b")
	m.Forget("a")
	require.Equal(t, 1, m.Len())
	require.Nil(t, m.GetNodesToEvict())
}

func TestNameIndex_ResolveName(t *testing.T) {
	m := New(Config{})
	m.IndexName("alice", "node-1")
	id, ok := m.ResolveName("alice")
	require.True(t, ok)
	require.Equal(t, "node-1", id)

	_, ok = m.ResolveName("bob")
	require.False(t, ok)
}

func TestReset_DropsRecencyAndNameIndex(t *testing.T) {
	m := New(Config{MaxMemoryNodes: 1})
	m.Touch("a")
	m.Touch("b")
	m.IndexName("alice", "a")

	m.Reset()

	require.Equal(t, 0, m.Len())
	require.Nil(t, m.GetNodesToEvict())
	_, ok := m.ResolveName("alice")
	require.False(t, ok)

	// The manager is reusable after a reset.
	m.Touch("c")
	require.Equal(t, 1, m.Len())
}
