package resolver

import (
	"testing"
	"time"

	"github.com/arborgraph/kgraph/pkg/graph"
	"github.com/arborgraph/kgraph/pkg/index"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) (*Resolver, *graph.Store) {
	t.Helper()
	store := graph.NewStore(graph.DefaultConfig())
	indices := index.NewSet(index.MetricCosine)
	store.RegisterChangeListener(indices.Listener)
	return New(store, indices, 0.8), store
}

// Scenario 6: entity resolution by normalized name.
func TestScenario_EntityResolution_ByName(t *testing.T) {
	r, store := newResolver(t)
	_, err := store.AddNode(&graph.Node{
		ID:   "alice-1",
		Type: "person",
		Properties: graph.PropertyMap{
			"name": graph.StringValue("Alice"),
		},
	})
	require.NoError(t, err)

	match, err := r.Resolve(EntityRecord{Type: "person", Name: "alice"})
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, "alice-1", match.Node.ID)
	require.Equal(t, 0.9, match.Confidence)
	require.Equal(t, MatchByName, match.Method)
}

func TestResolve_ByExactID(t *testing.T) {
	r, store := newResolver(t)
	_, err := store.AddNode(&graph.Node{ID: "alice-1", Type: "person"})
	require.NoError(t, err)

	match, err := r.Resolve(EntityRecord{ID: "alice-1", Type: "person"})
	require.NoError(t, err)
	require.Equal(t, 0.95, match.Confidence)
	require.Equal(t, MatchByID, match.Method)
}

func TestResolve_ByID_TypeMismatchFallsThrough(t *testing.T) {
	r, store := newResolver(t)
	_, err := store.AddNode(&graph.Node{
		ID:   "alice-1",
		Type: "person",
		Properties: graph.PropertyMap{
			"name": graph.StringValue("Alice"),
		},
	})
	require.NoError(t, err)

	// Wrong type on the id lookup falls through to the name step, which
	// also requires type "org" so this should end with no match.
	match, err := r.Resolve(EntityRecord{ID: "alice-1", Type: "org", Name: "Alice"})
	require.NoError(t, err)
	require.Nil(t, match)
}

func TestResolve_AmbiguousName(t *testing.T) {
	r, store := newResolver(t)
	_, err := store.AddNode(&graph.Node{
		ID: "alice-1", Type: "person",
		Properties: graph.PropertyMap{"name": graph.StringValue("Alice Smith")},
	})
	require.NoError(t, err)
	_, err = store.AddNode(&graph.Node{
		ID: "alice-2", Type: "person",
		Properties: graph.PropertyMap{"name": graph.StringValue("alice smith")},
	})
	require.NoError(t, err)

	_, err = r.Resolve(EntityRecord{Type: "person", Name: "Alice Smith"})
	require.ErrorIs(t, err, ErrAmbiguousNode)
}

func TestResolve_ByEmbedding(t *testing.T) {
	r, store := newResolver(t)
	_, err := store.AddNode(&graph.Node{
		ID: "alice-1", Type: "person", Embedding: []float32{1, 0, 0},
	})
	require.NoError(t, err)

	match, err := r.Resolve(EntityRecord{Type: "person", Embedding: []float32{1, 0, 0.01}})
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, MatchByEmbedding, match.Method)
	require.InDelta(t, 1.0, match.Confidence, 0.01)
}

func TestResolve_NoMatch(t *testing.T) {
	r, _ := newResolver(t)
	match, err := r.Resolve(EntityRecord{Type: "person", Name: "nobody"})
	require.NoError(t, err)
	require.Nil(t, match)
}

func TestMergeEntityProperties(t *testing.T) {
	existing := graph.PropertyMap{"name": graph.StringValue("Alice"), "age": graph.NumberValue(30)}
	updates := graph.PropertyMap{"age": graph.NumberValue(31), "title": graph.StringValue("Engineer")}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	merged := MergeEntityProperties(existing, updates, now, "resolver-test")

	age, _ := merged["age"].AsNumber()
	require.Equal(t, 31.0, age)
	name, _ := merged["name"].AsString()
	require.Equal(t, "Alice", name)
	title, _ := merged["title"].AsString()
	require.Equal(t, "Engineer", title)
	updatedBy, _ := merged["updatedBy"].AsString()
	require.Equal(t, "resolver-test", updatedBy)
	require.Contains(t, merged, "lastUpdated")
}
