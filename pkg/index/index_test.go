package index

import (
	"math"
	"testing"

	"github.com/arborgraph/kgraph/pkg/graph"
)

func TestLabelIndex(t *testing.T) {
	l := NewLabelIndex()
	l.Add("a", "person")
	l.Add("b", "person")
	l.Add("c", "org")

	got := l.Query("person")
	if len(got) != 2 {
		t.Fatalf("expected 2 persons, got %v", got)
	}

	l.Remove("a", "person")
	got = l.Query("person")
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("expected only b after remove, got %v", got)
	}
}

func TestPropertyIndex_Operators(t *testing.T) {
	p := NewPropertyIndex()
	p.Add("a", graph.PropertyMap{"age": graph.NumberValue(30), "city": graph.StringValue("Berlin")})
	p.Add("b", graph.PropertyMap{"age": graph.NumberValue(45), "city": graph.StringValue("Paris")})

	eq, err := p.Query("city", OpEq, graph.StringValue("Berlin"))
	if err != nil {
		t.Fatalf("eq query failed: %v", err)
	}
	if len(eq) != 1 || eq[0] != "a" {
		t.Errorf("expected [a], got %v", eq)
	}

	gt, err := p.Query("age", OpGt, graph.NumberValue(40))
	if err != nil {
		t.Fatalf("gt query failed: %v", err)
	}
	if len(gt) != 1 || gt[0] != "b" {
		t.Errorf("expected [b], got %v", gt)
	}

	contains, err := p.Query("city", OpContains, graph.StringValue("erl"))
	if err != nil {
		t.Fatalf("contains query failed: %v", err)
	}
	if len(contains) != 1 || contains[0] != "a" {
		t.Errorf("expected [a], got %v", contains)
	}

	matches, err := p.Query("city", OpMatches, graph.StringValue("^Par.*$"))
	if err != nil {
		t.Fatalf("matches query failed: %v", err)
	}
	if len(matches) != 1 || matches[0] != "b" {
		t.Errorf("expected [b], got %v", matches)
	}

	_, err = p.Query("age", Operator("bogus"), graph.NumberValue(1))
	if err == nil {
		t.Error("expected error for unsupported operator")
	}
}

func TestPropertyIndex_RemoveCleansUpEntries(t *testing.T) {
	p := NewPropertyIndex()
	p.Add("a", graph.PropertyMap{"age": graph.NumberValue(30)})
	p.Remove("a")

	got, err := p.Query("age", OpEq, graph.NumberValue(30))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no matches after remove, got %v", got)
	}
}

func TestTextIndex_ExactAndFuzzy(t *testing.T) {
	ti := NewTextIndex()
	ti.Add("a", "Alice works at Google as an engineer")
	ti.Add("b", "Bob works at Meta as a researcher")

	exact := ti.Query("google")
	if len(exact) != 1 || exact[0] != "a" {
		t.Errorf("expected [a], got %v", exact)
	}

	fuzzy := ti.FuzzyQuery("works at Google", 0.3)
	found := false
	for _, id := range fuzzy {
		if id == "a" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a to fuzzy-match, got %v", fuzzy)
	}
}

func TestVectorIndex_DimensionMismatch(t *testing.T) {
	v := NewVectorIndex(MetricCosine)
	if err := v.Add("a", []float32{1, 0, 0}); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := v.Add("b", []float32{1, 0}); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

// Scenario 5: vector search ordering over unit vectors at increasing angles.
func TestVectorIndex_OrderedByAngle(t *testing.T) {
	v := NewVectorIndex(MetricCosine)
	// unit vectors at 0, 10, 30, 60, 90 degrees
	angles := map[string]float64{"e1": 0, "e2": 10, "e3": 30, "e4": 60, "e5": 90}
	for id, deg := range angles {
		rad := deg * math.Pi / 180
		v.Add(id, []float32{float32(math.Cos(rad)), float32(math.Sin(rad))})
	}

	matches, err := v.Query([]float32{1, 0}, 3, 0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected top 3, got %d", len(matches))
	}
	want := []string{"e1", "e2", "e3"}
	for i, m := range matches {
		if m.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], m.ID)
		}
	}
}

func TestPatternIndex_SubsetMatch(t *testing.T) {
	pi := NewPatternIndex()
	pi.Add(Pattern{ID: "p1", NodeTypes: []string{"person", "org"}, EdgeTypes: []string{"works_at"}})

	matches := pi.Query(Pattern{NodeTypes: []string{"person"}, EdgeTypes: []string{"works_at"}})
	if len(matches) != 1 || matches[0] != "p1" {
		t.Errorf("expected [p1], got %v", matches)
	}

	noMatch := pi.Query(Pattern{NodeTypes: []string{"animal"}})
	if len(noMatch) != 0 {
		t.Errorf("expected no matches, got %v", noMatch)
	}
}

func TestSet_WiredToChangeListener(t *testing.T) {
	store := graph.NewStore(graph.DefaultConfig())
	set := NewSet(MetricCosine)
	store.RegisterChangeListener(set.Listener)

	store.AddNode(&graph.Node{ID: "alice", Type: "person", Properties: graph.PropertyMap{"city": graph.StringValue("Berlin")}})

	if got := set.QueryByLabel("person"); len(got) != 1 || got[0] != "alice" {
		t.Errorf("expected alice indexed by label, got %v", got)
	}

	matches, err := set.QueryByProperty("city", OpEq, graph.StringValue("Berlin"), "person")
	if err != nil {
		t.Fatalf("QueryByProperty failed: %v", err)
	}
	if len(matches) != 1 || matches[0] != "alice" {
		t.Errorf("expected alice, got %v", matches)
	}

	store.RemoveNode("alice")
	if got := set.QueryByLabel("person"); len(got) != 0 {
		t.Errorf("expected alice removed from label index, got %v", got)
	}
}
