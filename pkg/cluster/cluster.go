// Package cluster groups graph nodes by embedding similarity: k-means++
// seeded Lloyd's algorithm and single-linkage agglomerative clustering. Both
// operate purely on pkg/vectorkernel primitives, grounded in the general
// "seed -> iterate -> converge, confidence = avg member-to-centroid
// similarity" shape used by clustering code across the retrieval pack (the
// overall assign/update/converge loop structure, reimplemented here as
// plain Go since this module never builds with cgo or a GPU backend).
package cluster

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arborgraph/kgraph/pkg/vectorkernel"
)

// Item is the minimal shape clustering needs from a graph node: its id,
// type (for the theme label), display name, and embedding.
type Item struct {
	ID        string
	Type      string
	Name      string
	Embedding []float32
}

// Cluster is a group of items sharing a centroid, with a human-readable
// theme and a confidence score.
type Cluster struct {
	ID         string
	Members    []Item
	Centroid   []float32
	Theme      string
	Confidence float64
}

// theme renders "most-common-type: first-two-member-names…" per §4.9.
func theme(members []Item) string {
	if len(members) == 0 {
		return ""
	}
	counts := make(map[string]int)
	for _, m := range members {
		counts[m.Type]++
	}
	mostCommon := members[0].Type
	best := 0
	// iterate sorted types for determinism when counts tie
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		if counts[t] > best {
			best = counts[t]
			mostCommon = t
		}
	}

	names := make([]string, 0, 2)
	for i, m := range members {
		if i >= 2 {
			break
		}
		names = append(names, m.Name)
	}
	return fmt.Sprintf("%s: %s…", mostCommon, strings.Join(names, ", "))
}

// confidence returns the average cosine similarity of every member to
// centroid.
func confidence(members []Item, centroid []float32) float64 {
	if len(members) == 0 {
		return 0
	}
	var sum float64
	for _, m := range members {
		sum += vectorkernel.CosineSimilarity(m.Embedding, centroid)
	}
	return sum / float64(len(members))
}
