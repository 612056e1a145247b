package cluster

import (
	"fmt"
	"sort"

	"github.com/arborgraph/kgraph/pkg/vectorkernel"
)

// AgglomerativeConfig bounds a single-linkage agglomerative run.
type AgglomerativeConfig struct {
	MaxClusters int     // merging stops once this few clusters remain
	Threshold   float64 // merging stops once no pair reaches this similarity
}

// workingCluster is a cluster still being merged; members keeps insertion
// order so theme()'s "first-two-member-names" stays deterministic.
type workingCluster struct {
	members []Item
}

// Agglomerative performs single-linkage agglomerative clustering by cosine
// similarity: every item starts as its own cluster, and the most-similar
// pair is repeatedly merged until either MaxClusters is reached or no
// remaining pair has similarity >= Threshold, per §4.9.
func Agglomerative(items []Item, cfg AgglomerativeConfig) ([]Cluster, error) {
	if len(items) == 0 {
		return nil, nil
	}

	clusters := make([]*workingCluster, len(items))
	for i, item := range items {
		clusters[i] = &workingCluster{members: []Item{item}}
	}

	maxClusters := cfg.MaxClusters
	if maxClusters <= 0 {
		maxClusters = 1
	}

	for len(clusters) > maxClusters {
		bestI, bestJ, bestSim := -1, -1, cfg.Threshold
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				sim := linkageSimilarity(clusters[i], clusters[j])
				if sim >= bestSim {
					bestSim = sim
					bestI, bestJ = i, j
				}
			}
		}
		if bestI < 0 {
			break // no pair clears the threshold
		}

		merged := &workingCluster{members: append(append([]Item{}, clusters[bestI].members...), clusters[bestJ].members...)}
		next := make([]*workingCluster, 0, len(clusters)-1)
		for idx, c := range clusters {
			if idx == bestI || idx == bestJ {
				continue
			}
			next = append(next, c)
		}
		next = append(next, merged)
		clusters = next
	}

	var out []Cluster
	for i, c := range clusters {
		if len(c.members) < 2 {
			continue
		}
		centroid := vectorkernel.Centroid(embeddingsOf(c.members))
		out = append(out, Cluster{
			ID:         fmt.Sprintf("agglomerative-%d", i),
			Members:    c.members,
			Centroid:   centroid,
			Theme:      theme(c.members),
			Confidence: confidence(c.members, centroid),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// linkageSimilarity is single-linkage: the maximum pairwise cosine
// similarity between any member of a and any member of b.
func linkageSimilarity(a, b *workingCluster) float64 {
	best := -2.0 // cosine similarity is always >= -1, so this is a safe floor
	for _, m1 := range a.members {
		for _, m2 := range b.members {
			sim := vectorkernel.CosineSimilarity(m1.Embedding, m2.Embedding)
			if sim > best {
				best = sim
			}
		}
	}
	return best
}
