package query

import (
	"testing"

	"github.com/arborgraph/kgraph/pkg/graph"
	"github.com/arborgraph/kgraph/pkg/index"
	"github.com/arborgraph/kgraph/pkg/resolver"
	"github.com/stretchr/testify/require"
)

func newProcessor(t *testing.T) (*Processor, *graph.Store) {
	t.Helper()
	store := graph.NewStore(graph.DefaultConfig())
	indices := index.NewSet(index.MetricCosine)
	store.RegisterChangeListener(indices.Listener)
	res := resolver.New(store, indices, 0.8)
	return New(store, indices, res), store
}

func TestCalculateRelevanceScore_CapsAtOne(t *testing.T) {
	score := CalculateRelevanceScore(Signals{
		ExactName:          true,
		PartialName:        true,
		ResolverConfidence: 1.0,
		PropertyHits:       5,
		HasVector:          true,
		VectorSimilarity:   1.0,
	})
	require.Equal(t, 1.0, score)
}

func TestCalculateRelevanceScore_SumsSignals(t *testing.T) {
	score := CalculateRelevanceScore(Signals{
		PartialName:        true,
		ResolverConfidence: 0.1,
		PropertyHits:       1,
	})
	require.InDelta(t, 0.7+0.1*0.5+0.2, score, 1e-9)
}

func TestFindRelevantNodes_ExactNameMatch(t *testing.T) {
	p, store := newProcessor(t)
	_, err := store.AddNode(&graph.Node{
		ID: "alice", Type: "person",
		Properties: graph.PropertyMap{"name": graph.StringValue("Alice")},
	})
	require.NoError(t, err)
	_, err = store.AddNode(&graph.Node{
		ID: "bob", Type: "person",
		Properties: graph.PropertyMap{"name": graph.StringValue("Bob")},
	})
	require.NoError(t, err)

	results, err := p.FindRelevantNodes("Alice", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "alice", results[0].Node.ID)
	require.True(t, results[0].Signals.ExactName)
}

func TestFindRelevantNodes_VectorSignal(t *testing.T) {
	p, store := newProcessor(t)
	_, err := store.AddNode(&graph.Node{ID: "n1", Type: "thing", Embedding: []float32{1, 0, 0}})
	require.NoError(t, err)
	_, err = store.AddNode(&graph.Node{ID: "n2", Type: "thing", Embedding: []float32{0, 1, 0}})
	require.NoError(t, err)

	results, err := p.FindRelevantNodes("", []float32{1, 0, 0})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "n1", results[0].Node.ID)
	require.True(t, results[0].Signals.HasVector)
}

func TestRankResults_ThresholdAndOrder(t *testing.T) {
	n1 := &graph.Node{ID: "n1"}
	n2 := &graph.Node{ID: "n2"}
	n3 := &graph.Node{ID: "n3"}

	ranked := RankResults([]ScoredNode{
		{Node: n1, Score: 0.9},
		{Node: n2, Score: 0.02}, // below threshold, dropped
		{Node: n3, Score: 0.05}, // exactly at threshold, kept
	})

	require.Len(t, ranked, 2)
	require.Equal(t, "n1", ranked[0].Node.ID)
	require.Equal(t, "n3", ranked[1].Node.ID)
}
