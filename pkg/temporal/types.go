// Package temporal wraps a graph.Store to add validity-interval semantics to
// edges: every inserted relationship carries a [validFrom, validUntil) window,
// conflicting relationships sharing a source node are detected and the
// older one invalidated, and time-slice queries reconstruct the graph as it
// stood at any instant. This generalizes the teacher's memory-record
// supersession chain (RecordSupersession/GetSupersessionChain/superseded_by)
// from memory-record versioning to edge-level temporal conflict: newer wins,
// the older edge is retained for history rather than deleted outright.
package temporal

import "time"

// Type classifies the temporal shape of a relationship, driving its default
// validity window when the caller does not supply one explicitly.
type Type string

const (
	TypeFact  Type = "fact"  // stable, long-lived: default validity 1 year
	TypeEvent Type = "event" // point-in-time occurrence: default validity 30 days
	TypeState Type = "state" // time-extended condition: default validity 90 days
)

// defaultWindow returns the default validity duration for t.
func (t Type) defaultWindow() time.Duration {
	switch t {
	case TypeEvent:
		return 30 * 24 * time.Hour
	case TypeState:
		return 90 * 24 * time.Hour
	default:
		return 365 * 24 * time.Hour
	}
}

// InvalidationReason tags why an edge's validity window was closed.
type InvalidationReason string

const (
	ReasonSuperseded         InvalidationReason = "superseded"
	ReasonContradicted       InvalidationReason = "contradicted"
	ReasonExpired            InvalidationReason = "expired"
	ReasonContextChanged     InvalidationReason = "context_changed"
	ReasonManual             InvalidationReason = "manual"
	ReasonCrossGraphConflict InvalidationReason = "cross_graph_conflict"
)

// Edge carries a graph.Edge's id, endpoints and type plus validity-interval
// metadata. AddTemporalRelationship always sets ValidUntil (from the caller
// or the type's default window); IsActiveAt treats a nil ValidUntil as
// open-ended. Invalidation only moves ValidUntil earlier, never later or
// back to nil, per the temporal-monotonicity invariant.
type Edge struct {
	ID         string
	SourceID   string
	TargetID   string
	Type       string
	ValidFrom  time.Time
	ValidUntil *time.Time
	Temporal   Type
	Reason     InvalidationReason // set only once ValidUntil is set
}

// IsActiveAt reports whether e is active at instant t: validFrom <= t and
// (validUntil absent or validUntil > t).
func (e *Edge) IsActiveAt(t time.Time) bool {
	if t.Before(e.ValidFrom) {
		return false
	}
	if e.ValidUntil == nil {
		return true
	}
	return t.Before(*e.ValidUntil)
}

// dayKey truncates t to day granularity for the validFrom/validUntil
// secondary indices — day granularity is sufficient for typical
// memory-retention queries; callers needing finer granularity filter
// post-index, per §4.5.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// mutuallyExclusivePairs are statically declared relation-type pairs that
// conflict even when their type tags differ.
var mutuallyExclusivePairs = [][2]string{
	{"married_to", "divorced_from"},
	{"works_at", "unemployed"},
}

func declaredMutuallyExclusive(a, b string) bool {
	for _, pair := range mutuallyExclusivePairs {
		if (a == pair[0] && b == pair[1]) || (a == pair[1] && b == pair[0]) {
			return true
		}
	}
	return false
}

// inferTemporalType heuristically classifies a relation verb into a
// temporal Type when the caller does not supply one, per §4.5
// "classifies temporalType (supplied or inferred heuristically from the
// relation verb)".
func inferTemporalType(relationType string) Type {
	switch relationType {
	case "works_at", "married_to", "divorced_from", "lives_in", "owns", "parent_of", "sibling_of":
		return TypeFact
	case "unemployed", "studying_at", "dating", "renting", "visiting":
		return TypeState
	default:
		return TypeEvent
	}
}
