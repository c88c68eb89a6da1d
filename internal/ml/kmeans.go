package ml

import (
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultMaxIterations        = 100
	DefaultConvergenceThreshold = 0.001
)

// KMeans partitions points into at most K clusters with Lloyd's algorithm.
// A KMeans value is not safe for concurrent use when Rand is shared.
type KMeans struct {
	K             int
	MaxIterations int
	Threshold     float64

	// Rand picks the initial centroids. A time-seeded source is used when nil.
	Rand *rand.Rand
}

// ClusterResult holds the outcome of one clustering run.
// Clusters[i] lists the indices of the points whose nearest centroid is Centroids[i].
type ClusterResult struct {
	Clusters   [][]int     `json:"clusters"`
	Centroids  [][]float64 `json:"centroids"`
	Iterations int         `json:"iterations"`
	Converged  bool        `json:"converged"`
}

// NewKMeans creates a clusterer with default iteration cap and threshold
func NewKMeans(k int, rng *rand.Rand) *KMeans {
	return &KMeans{
		K:             k,
		MaxIterations: DefaultMaxIterations,
		Threshold:     DefaultConvergenceThreshold,
		Rand:          rng,
	}
}

// Cluster runs k-means over data. Every point must have the same dimensionality.
func (km *KMeans) Cluster(data [][]float64) (*ClusterResult, error) {
	if len(data) == 0 {
		return &ClusterResult{Clusters: [][]int{}, Centroids: [][]float64{}}, nil
	}

	k := km.K
	if k < 1 {
		k = 1
	}
	if k > len(data) {
		k = len(data)
	}

	maxIterations := km.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	threshold := km.Threshold
	if threshold <= 0 {
		threshold = DefaultConvergenceThreshold
	}

	centroids := km.initializeCentroids(data, k)
	result := &ClusterResult{}

	for result.Iterations < maxIterations && !result.Converged {
		clusters, err := assignToClusters(data, centroids)
		if err != nil {
			return nil, err
		}

		// nil entries mark clusters that lost all their members
		updated := updateCentroids(data, clusters)

		converged, err := hasConverged(centroids, updated, threshold)
		if err != nil {
			return nil, err
		}

		for i, centroid := range updated {
			if centroid != nil {
				centroids[i] = centroid
			}
		}

		result.Clusters = clusters
		result.Converged = converged
		result.Iterations++
	}

	result.Centroids = centroids
	return result, nil
}

func (km *KMeans) initializeCentroids(data [][]float64, k int) [][]float64 {
	rng := km.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	// The first k entries of a permutation are k distinct indices
	indexes := rng.Perm(len(data))[:k]

	centroids := make([][]float64, k)
	for i, index := range indexes {
		centroids[i] = append([]float64(nil), data[index]...)
	}

	return centroids
}

func assignToClusters(data [][]float64, centroids [][]float64) ([][]int, error) {
	clusters := make([][]int, len(centroids))
	for i := range clusters {
		clusters[i] = []int{}
	}

	for pointIndex, point := range data {
		clusterIndex := 0
		minDistance := 0.0

		for i, centroid := range centroids {
			distance, err := Distance(point, centroid)
			if err != nil {
				return nil, err
			}
			if i == 0 || distance < minDistance {
				minDistance = distance
				clusterIndex = i
			}
		}

		clusters[clusterIndex] = append(clusters[clusterIndex], pointIndex)
	}

	return clusters, nil
}

func updateCentroids(data [][]float64, clusters [][]int) [][]float64 {
	dimensions := len(data[0])
	centroids := make([][]float64, len(clusters))

	for i, cluster := range clusters {
		if len(cluster) == 0 {
			continue
		}

		centroid := make([]float64, dimensions)
		for _, pointIndex := range cluster {
			floats.Add(centroid, data[pointIndex])
		}
		floats.Scale(1/float64(len(cluster)), centroid)

		centroids[i] = centroid
	}

	return centroids
}

func hasConverged(old, updated [][]float64, threshold float64) (bool, error) {
	for i, centroid := range updated {
		if centroid == nil {
			continue
		}

		distance, err := Distance(old[i], centroid)
		if err != nil {
			return false, err
		}
		if distance >= threshold {
			return false, nil
		}
	}

	return true, nil
}
