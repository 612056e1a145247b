package kgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborgraph/kgraph/pkg/graph"
	"github.com/arborgraph/kgraph/pkg/traversal"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNewEngine_AppliesDefaults(t *testing.T) {
	e, err := NewEngine(Config{})
	require.NoError(t, err)
	defer e.Close()

	require.Equal(t, 0.75, e.cfg.FuzzyThreshold)
	require.NotNil(t, e.logger)
	require.NotNil(t, e.metricsCollector)
	require.NotNil(t, e.traceExporter)
	require.Nil(t, e.persist)
}

func TestNewEngine_NoPersistenceDirLeavesPersistNil(t *testing.T) {
	e := newTestEngine(t)
	require.Nil(t, e.persist)
}

func TestNewEngine_PersistenceDirOpensStore(t *testing.T) {
	e, err := NewEngine(Config{PersistenceDir: t.TempDir()})
	require.NoError(t, err)
	defer e.Close()
	require.NotNil(t, e.persist)
}

func TestAddMemory_CreatesNodeWithText(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	result, err := e.AddMemory(ctx, "the quick fox", AddMemoryOptions{})
	require.NoError(t, err)
	require.NotNil(t, result.Node)
	require.Equal(t, "memory", result.Node.Type)

	text, ok := result.Node.Properties["text"].AsString()
	require.True(t, ok)
	require.Equal(t, "the quick fox", text)
}

func TestAddMemory_CustomNodeTypeAndProperties(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	props := graph.PropertyMap{"name": graph.StringValue("Ada Lovelace")}
	result, err := e.AddMemory(ctx, "a note about Ada", AddMemoryOptions{
		NodeType:   "person",
		Properties: props,
	})
	require.NoError(t, err)
	require.Equal(t, "person", result.Node.Type)

	name, ok := result.Node.Properties["name"].AsString()
	require.True(t, ok)
	require.Equal(t, "Ada Lovelace", name)
}

func TestAddMemory_RecordsErrorOnCapacityExceeded(t *testing.T) {
	e, err := NewEngine(Config{MaxNodes: 1})
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	_, err = e.AddMemory(ctx, "first", AddMemoryOptions{})
	require.NoError(t, err)

	_, err = e.AddMemory(ctx, "second", AddMemoryOptions{})
	require.Error(t, err)

	counts := ErrorCounts()
	require.Greater(t, counts[ErrTypeCapacity], int64(0))
}

func TestQueryMemory_FindsExactNameMatch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddMemory(ctx, "about rivers", AddMemoryOptions{
		Properties: graph.PropertyMap{"name": graph.StringValue("Amazon River")},
	})
	require.NoError(t, err)

	results, err := e.QueryMemory(ctx, "Amazon River", QueryOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Greater(t, results[0].Score, 0.0)
}

func TestBFSTraversal_ReturnsStartNodeOnly(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	result, err := e.AddMemory(ctx, "solo node", AddMemoryOptions{})
	require.NoError(t, err)

	bfsResult, err := e.BFSTraversal(ctx, result.Node.ID, BFSOptions{
		MaxDepth:         0,
		Direction:        traversal.DirectionOut,
		IncludeStartNode: true,
	})
	require.NoError(t, err)
	require.Len(t, bfsResult.Nodes, 1)
	require.Equal(t, result.Node.ID, bfsResult.Nodes[0].ID)
}

func TestBFSTraversal_UnknownNodeReturnsError(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.BFSTraversal(ctx, "does-not-exist", BFSOptions{})
	require.Error(t, err)
}

func TestBulkAdd_CreatesNodesAndEdges(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	a := &graph.Node{Type: "memory", Properties: graph.PropertyMap{"name": graph.StringValue("A")}}
	b := &graph.Node{Type: "memory", Properties: graph.PropertyMap{"name": graph.StringValue("B")}}

	result, err := e.BulkAdd(ctx, []*graph.Node{a, b}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, result.NodesCreated)
	require.Empty(t, result.Errors)

	edge := &graph.Edge{SourceID: a.ID, TargetID: b.ID, Type: "related_to"}
	result2, err := e.BulkAdd(ctx, nil, []*graph.Edge{edge})
	require.NoError(t, err)
	require.Equal(t, 1, result2.EdgesCreated)
}

func TestBulkAdd_CollectsPerItemErrorsWithoutAborting(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	good := &graph.Node{Type: "memory"}
	badEdge := &graph.Edge{SourceID: "missing-source", TargetID: "missing-target", Type: "related_to"}

	result, err := e.BulkAdd(ctx, []*graph.Node{good}, []*graph.Edge{badEdge})
	require.NoError(t, err)
	require.Equal(t, 1, result.NodesCreated)
	require.Equal(t, 0, result.EdgesCreated)
	require.Len(t, result.Errors, 1)
}

func TestClear_EmptiesStore(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddMemory(ctx, "ephemeral", AddMemoryOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, e.GetAllNodes())

	e.Clear()
	require.Empty(t, e.GetAllNodes())
	require.Empty(t, e.GetAllEdges())
}

func TestClear_ResetsMemoryManagerRecencyAndNameIndex(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	result, err := e.AddMemory(ctx, "alice", AddMemoryOptions{
		Properties: graph.PropertyMap{"name": graph.StringValue("alice")},
	})
	require.NoError(t, err)
	require.Equal(t, 1, e.memory.Len())
	id, ok := e.memory.ResolveName("alice")
	require.True(t, ok)
	require.Equal(t, result.Node.ID, id)

	e.Clear()

	require.Equal(t, 0, e.memory.Len())
	_, ok = e.memory.ResolveName("alice")
	require.False(t, ok, "name index must not survive Clear")
}

func TestGetMetrics_ReflectsStoreSize(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddMemory(ctx, "one", AddMemoryOptions{})
	require.NoError(t, err)
	_, err = e.AddMemory(ctx, "two", AddMemoryOptions{})
	require.NoError(t, err)

	stats, _ := e.GetMetrics()
	require.Equal(t, 2, stats.NodeCount)
	require.Equal(t, 0, stats.EdgeCount)
}

func TestGetNode_UnknownIDReturnsError(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.GetNode("nope")
	require.Error(t, err)
}
