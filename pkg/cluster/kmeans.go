package cluster

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/arborgraph/kgraph/pkg/vectorkernel"
)

const (
	maxLloydIterations = 10
	convergenceEpsilon = 1e-3
)

// KMeansConfig bounds a k-means run.
type KMeansConfig struct {
	K int
	// SimilarityThreshold: a node is assigned to the most-similar centroid
	// iff cosine similarity > threshold; otherwise it is left unassigned.
	SimilarityThreshold float64
	// Seed controls the k-means++ random seeding draw, for reproducible
	// runs in tests. Zero uses a fixed default seed rather than real
	// entropy, so repeated calls with the same items are deterministic.
	Seed int64
}

// KMeans runs k-means++ seeded Lloyd's algorithm over items' embeddings: at
// most 10 Lloyd iterations, convergence when every centroid's movement is
// below 1e-3 (euclidean). After convergence, items are assigned to their
// most-similar centroid iff cosine similarity exceeds
// cfg.SimilarityThreshold; unassigned items are dropped. Clusters with
// fewer than 2 final members are discarded, per §4.9.
func KMeans(items []Item, cfg KMeansConfig) ([]Cluster, error) {
	if cfg.K <= 0 {
		return nil, nil
	}
	if len(items) == 0 {
		return nil, nil
	}
	k := cfg.K
	if k > len(items) {
		k = len(items)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	centroids := seedPlusPlus(items, k, rng)

	for iter := 0; iter < maxLloydIterations; iter++ {
		assignments := assignByDistance(items, centroids)
		newCentroids := updateCentroids(items, assignments, centroids)

		converged := true
		for i := range centroids {
			if vectorkernel.EuclideanDistance(centroids[i], newCentroids[i]) >= convergenceEpsilon {
				converged = false
				break
			}
		}
		centroids = newCentroids
		if converged {
			break
		}
	}

	groups := make(map[int][]Item)
	for _, item := range items {
		best, ok := mostSimilarCentroid(item.Embedding, centroids, cfg.SimilarityThreshold)
		if !ok {
			continue // below threshold: unassigned
		}
		groups[best] = append(groups[best], item)
	}

	var clusters []Cluster
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		members := groups[id]
		if len(members) < 2 {
			continue
		}
		centroid := vectorkernel.Centroid(embeddingsOf(members))
		clusters = append(clusters, Cluster{
			ID:         fmt.Sprintf("kmeans-%d", id),
			Members:    members,
			Centroid:   centroid,
			Theme:      theme(members),
			Confidence: confidence(members, centroid),
		})
	}
	return clusters, nil
}

// seedPlusPlus picks k initial centroids via k-means++: the first
// uniformly at random, each subsequent one weighted by squared distance to
// the nearest existing centroid.
func seedPlusPlus(items []Item, k int, rng *rand.Rand) [][]float32 {
	centroids := make([][]float32, 0, k)
	first := items[rng.Intn(len(items))]
	centroids = append(centroids, append([]float32{}, first.Embedding...))

	for len(centroids) < k {
		weights := make([]float64, len(items))
		var total float64
		for i, item := range items {
			best := nearestDistance(item.Embedding, centroids)
			d2 := best * best
			weights[i] = d2
			total += d2
		}
		if total == 0 {
			// every remaining item coincides with an existing centroid;
			// fall back to uniform choice to still reach k centroids.
			centroids = append(centroids, append([]float32{}, items[rng.Intn(len(items))].Embedding...))
			continue
		}
		target := rng.Float64() * total
		var cum float64
		chosen := items[len(items)-1]
		for i, w := range weights {
			cum += w
			if cum >= target {
				chosen = items[i]
				break
			}
		}
		centroids = append(centroids, append([]float32{}, chosen.Embedding...))
	}
	return centroids
}

func nearestDistance(v []float32, centroids [][]float32) float64 {
	best := -1.0
	for _, c := range centroids {
		d := vectorkernel.EuclideanDistance(v, c)
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}

func assignByDistance(items []Item, centroids [][]float32) []int {
	assignments := make([]int, len(items))
	for i, item := range items {
		best := 0
		bestDist := vectorkernel.EuclideanDistance(item.Embedding, centroids[0])
		for c := 1; c < len(centroids); c++ {
			d := vectorkernel.EuclideanDistance(item.Embedding, centroids[c])
			if d < bestDist {
				bestDist = d
				best = c
			}
		}
		assignments[i] = best
	}
	return assignments
}

func updateCentroids(items []Item, assignments []int, prior [][]float32) [][]float32 {
	groups := make([][][]float32, len(prior))
	for i, item := range items {
		c := assignments[i]
		groups[c] = append(groups[c], item.Embedding)
	}

	out := make([][]float32, len(prior))
	for i := range prior {
		if len(groups[i]) == 0 {
			out[i] = prior[i] // keep stale centroid rather than collapsing to zero
			continue
		}
		out[i] = vectorkernel.Centroid(groups[i])
	}
	return out
}

func mostSimilarCentroid(v []float32, centroids [][]float32, threshold float64) (int, bool) {
	best := -1
	bestScore := threshold
	for i, c := range centroids {
		score := vectorkernel.CosineSimilarity(v, c)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

func embeddingsOf(items []Item) [][]float32 {
	out := make([][]float32, len(items))
	for i, item := range items {
		out[i] = item.Embedding
	}
	return out
}
