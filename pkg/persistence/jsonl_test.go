package persistence

import (
	"testing"
	"time"

	"github.com/arborgraph/kgraph/pkg/graph"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, cfg Config) *JSONLStore {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	s, err := NewJSONLStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleNode(id string) *graph.Node {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &graph.Node{
		ID:   id,
		Type: "person",
		Properties: graph.PropertyMap{
			"name": graph.StringValue("Alice"),
			"age":  graph.NumberValue(30),
		},
		Embedding: []float32{0.1, 0.2, 0.3},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStoreAndLoadNodes_RoundTrip(t *testing.T) {
	s := newStore(t, Config{})
	nodes := []*graph.Node{sampleNode("n1"), sampleNode("n2")}
	require.NoError(t, s.StoreNodes(nodes))

	loaded, err := s.LoadNodes(LoadOptions{})
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	byID := map[string]*graph.Node{}
	for _, n := range loaded {
		byID[n.ID] = n
	}
	require.Equal(t, "person", byID["n1"].Type)
	name, ok := byID["n1"].Properties["name"].AsString()
	require.True(t, ok)
	require.Equal(t, "Alice", name)
	age, ok := byID["n1"].Properties["age"].AsNumber()
	require.True(t, ok)
	require.Equal(t, 30.0, age)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, byID["n1"].Embedding)
}

func TestStoreNodes_RollsOverAtItemLimit(t *testing.T) {
	s := newStore(t, Config{MaxItemsPerFile: 2})
	for i := 0; i < 5; i++ {
		require.NoError(t, s.StoreNodes([]*graph.Node{sampleNode(string(rune('a' + i)))}))
	}
	stats, err := s.GetStats()
	require.NoError(t, err)
	require.GreaterOrEqual(t, stats.NodeFiles, 3)
	require.EqualValues(t, 5, stats.NodeCount)
}

func TestDeleteNodes_RemovesRecordAndLedgerRow(t *testing.T) {
	s := newStore(t, Config{})
	require.NoError(t, s.StoreNodes([]*graph.Node{sampleNode("n1"), sampleNode("n2")}))

	require.NoError(t, s.DeleteNodes([]string{"n1"}))
	loaded, err := s.LoadNodes(LoadOptions{})
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "n2", loaded[0].ID)

	dirty, err := s.ledger.Dirty()
	require.NoError(t, err)
	for _, d := range dirty {
		require.NotEqual(t, "n1", d.RecordID)
	}
}

func TestStoreEdges_RoundTrip(t *testing.T) {
	s := newStore(t, Config{})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	edge := &graph.Edge{
		ID: "e1", SourceID: "n1", TargetID: "n2", Type: "knows", Weight: 0.5,
		Properties: graph.PropertyMap{"since": graph.StringValue("2020")},
		CreatedAt:  now, UpdatedAt: now,
	}
	require.NoError(t, s.StoreEdges([]*graph.Edge{edge}))

	loaded, err := s.LoadEdges(LoadOptions{})
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "knows", loaded[0].Type)
	require.Equal(t, 0.5, loaded[0].Weight)
}

func TestBackupAndRestore_RoundTrip(t *testing.T) {
	s := newStore(t, Config{})
	require.NoError(t, s.StoreNodes([]*graph.Node{sampleNode("n1")}))

	backupName, err := s.CreateBackup("")
	require.NoError(t, err)

	require.NoError(t, s.DeleteNodes([]string{"n1"}))
	loaded, err := s.LoadNodes(LoadOptions{})
	require.NoError(t, err)
	require.Len(t, loaded, 0)

	require.NoError(t, s.RestoreFromBackup(backupName))
	loaded, err = s.LoadNodes(LoadOptions{})
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "n1", loaded[0].ID)
}

func TestLedger_MarkSyncedClearsDirty(t *testing.T) {
	s := newStore(t, Config{})
	require.NoError(t, s.StoreNodes([]*graph.Node{sampleNode("n1")}))

	dirty, err := s.ledger.Dirty()
	require.NoError(t, err)
	require.Len(t, dirty, 1)

	require.NoError(t, s.ledger.MarkSynced("n1"))
	dirty, err = s.ledger.Dirty()
	require.NoError(t, err)
	require.Len(t, dirty, 0)
}

func TestLedger_AttemptsCapAtMax(t *testing.T) {
	s := newStore(t, Config{})
	require.NoError(t, s.StoreNodes([]*graph.Node{sampleNode("n1")}))

	for i := 0; i < 5; i++ {
		require.NoError(t, s.ledger.MarkAttemptFailed("n1", errBoom))
	}
	stuck, err := s.ledger.Stuck()
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	require.Equal(t, maxSyncAttempts, stuck[0].Attempts)
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
