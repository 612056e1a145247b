package temporal

import (
	"testing"
	"time"

	"github.com/arborgraph/kgraph/pkg/graph"
	"github.com/stretchr/testify/require"
)

func newLayer(t *testing.T) (*Layer, *graph.Store) {
	t.Helper()
	s := graph.NewStore(graph.DefaultConfig())
	_, err := s.AddNode(&graph.Node{ID: "alice", Type: "person"})
	require.NoError(t, err)
	_, err = s.AddNode(&graph.Node{ID: "google", Type: "org"})
	require.NoError(t, err)
	_, err = s.AddNode(&graph.Node{ID: "meta", Type: "org"})
	require.NoError(t, err)
	return NewLayer(s, Config{}), s
}

// Scenario 2: temporal supersession.
func TestScenario_TemporalSupersession(t *testing.T) {
	layer, store := newLayer(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := base.Add(1 * time.Hour)
	t2 := base.Add(2 * time.Hour)

	googleEdge, err := layer.AddTemporalRelationship(
		&graph.Edge{SourceID: "alice", TargetID: "google", Type: "works_at"},
		AddOptions{ValidFrom: t1, Temporal: TypeFact},
	)
	require.NoError(t, err)

	metaEdge, err := layer.AddTemporalRelationship(
		&graph.Edge{SourceID: "alice", TargetID: "meta", Type: "works_at"},
		AddOptions{ValidFrom: t2, Temporal: TypeFact},
	)
	require.NoError(t, err)

	// Only the Meta edge remains live in the base graph; the Google edge
	// was invalidated, not deleted.
	edges := store.GetAllEdges()
	require.Len(t, edges, 1)
	require.Equal(t, metaEdge.ID, edges[0].ID)

	updatedGoogle, err := layer.GetTemporalEdge(googleEdge.ID)
	require.NoError(t, err)
	require.NotNil(t, updatedGoogle.ValidUntil)
	require.True(t, updatedGoogle.ValidUntil.Equal(t2))
	require.Equal(t, ReasonSuperseded, updatedGoogle.Reason)

	// At t=1.5 (half way between t1 and t2) the Google edge was still
	// active and the Meta edge had not yet begun.
	halfway := base.Add(90 * time.Minute)
	activeHalfway, _, err := layer.GetGraphStateAt(halfway)
	require.NoError(t, err)
	require.Len(t, activeHalfway, 1)
	require.Equal(t, googleEdge.ID, activeHalfway[0].ID)

	// At t=2.5 only Meta is active.
	after := base.Add(150 * time.Minute)
	activeAfter, nodes, err := layer.GetGraphStateAt(after)
	require.NoError(t, err)
	require.Len(t, activeAfter, 1)
	require.Equal(t, metaEdge.ID, activeAfter[0].ID)

	nodeIDs := []string{nodes[0].ID, nodes[1].ID}
	require.ElementsMatch(t, []string{"alice", "meta"}, nodeIDs)
}

func TestAddTemporalRelationship_MutuallyExclusivePair(t *testing.T) {
	layer, _ := newLayer(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	marriage, err := layer.AddTemporalRelationship(
		&graph.Edge{SourceID: "alice", TargetID: "google", Type: "married_to"},
		AddOptions{ValidFrom: base, Temporal: TypeFact},
	)
	require.NoError(t, err)

	_, err = layer.AddTemporalRelationship(
		&graph.Edge{SourceID: "alice", TargetID: "google", Type: "divorced_from"},
		AddOptions{ValidFrom: base.Add(24 * time.Hour), Temporal: TypeFact},
	)
	require.NoError(t, err)

	updated, err := layer.GetTemporalEdge(marriage.ID)
	require.NoError(t, err)
	require.Equal(t, ReasonContradicted, updated.Reason)
}

func TestAddTemporalRelationship_DefaultWindowByClass(t *testing.T) {
	layer, _ := newLayer(t)
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	fact, err := layer.AddTemporalRelationship(
		&graph.Edge{SourceID: "alice", TargetID: "google", Type: "works_at"},
		AddOptions{ValidFrom: from, Temporal: TypeFact},
	)
	require.NoError(t, err)
	require.Equal(t, from.Add(365*24*time.Hour), *fact.ValidUntil)

	event, err := layer.AddTemporalRelationship(
		&graph.Edge{SourceID: "alice", TargetID: "meta", Type: "visited"},
		AddOptions{ValidFrom: from, Temporal: TypeEvent},
	)
	require.NoError(t, err)
	require.Equal(t, from.Add(30*24*time.Hour), *event.ValidUntil)
}

func TestInvalidate_Monotonic(t *testing.T) {
	layer, _ := newLayer(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	e, err := layer.AddTemporalRelationship(
		&graph.Edge{SourceID: "alice", TargetID: "google", Type: "works_at"},
		AddOptions{ValidFrom: from, Temporal: TypeFact},
	)
	require.NoError(t, err)

	firstClose := from.Add(1 * time.Hour)
	require.NoError(t, layer.Invalidate(e.ID, firstClose, ReasonManual))

	// A later attempt to "reopen" by setting a later validUntil must not
	// move the window forward again; monotonicity means validUntil once set
	// never unsets or shifts later.
	laterAttempt := from.Add(2 * time.Hour)
	require.NoError(t, layer.Invalidate(e.ID, laterAttempt, ReasonContextChanged))

	updated, err := layer.GetTemporalEdge(e.ID)
	require.NoError(t, err)
	require.True(t, updated.ValidUntil.Equal(firstClose))
	require.Equal(t, ReasonManual, updated.Reason)
}

func TestByTemporalType(t *testing.T) {
	layer, _ := newLayer(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := layer.AddTemporalRelationship(
		&graph.Edge{SourceID: "alice", TargetID: "google", Type: "works_at"},
		AddOptions{ValidFrom: from, Temporal: TypeFact},
	)
	require.NoError(t, err)

	ids := layer.ByTemporalType(TypeFact)
	require.Len(t, ids, 1)
	require.Empty(t, layer.ByTemporalType(TypeEvent))
}

func TestLayer_ResetsOnStoreClear(t *testing.T) {
	layer, store := newLayer(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	edge, err := layer.AddTemporalRelationship(
		&graph.Edge{SourceID: "alice", TargetID: "google", Type: "works_at"},
		AddOptions{ValidFrom: from, Temporal: TypeFact},
	)
	require.NoError(t, err)
	require.Len(t, layer.ByTemporalType(TypeFact), 1)

	store.Clear()

	_, err = layer.GetTemporalEdge(edge.ID)
	require.Error(t, err, "temporal metadata must not survive a store Clear")
	require.Empty(t, layer.ByTemporalType(TypeFact))
}

func TestEventLog_RecentSequences(t *testing.T) {
	log := NewEventLog()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	log.Append("trip-planning", Event{ID: "e1", Kind: EventStart, At: now.Add(-40 * 24 * time.Hour)})
	log.Append("trip-planning", Event{ID: "e2", Kind: EventComplete, At: now.Add(-30 * 24 * time.Hour)})
	log.Append("grocery-list", Event{ID: "e3", Kind: EventStart, At: now.Add(-1 * time.Hour)})

	scored := log.RecentSequences(now, 30)
	require.Len(t, scored, 2)
	require.Equal(t, "grocery-list", scored[0].ID)
	require.Greater(t, scored[0].Score, scored[1].Score)
}
