package ml

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func assertPartition(t *testing.T, result *ClusterResult, n int) {
	t.Helper()

	var seen []int
	for _, cluster := range result.Clusters {
		seen = append(seen, cluster...)
	}
	sort.Ints(seen)

	expected := make([]int, n)
	for i := range expected {
		expected[i] = i
	}
	assert.Equal(t, expected, seen, "every index must belong to exactly one cluster")
}

func TestKMeans_Cluster(t *testing.T) {
	t.Run("empty data returns empty result", func(t *testing.T) {
		result, err := NewKMeans(3, seeded(1)).Cluster(nil)
		require.NoError(t, err)
		assert.Empty(t, result.Clusters)
		assert.Empty(t, result.Centroids)
		assert.Equal(t, 0, result.Iterations)
	})

	t.Run("separates well separated groups", func(t *testing.T) {
		data := [][]float64{
			{0, 0}, {0.1, 0}, {0, 0.1},
			{10, 10}, {10.1, 10}, {10, 10.1},
		}

		result, err := NewKMeans(2, seeded(7)).Cluster(data)
		require.NoError(t, err)
		require.Len(t, result.Clusters, 2)
		require.Len(t, result.Centroids, 2)
		assertPartition(t, result, len(data))
		assert.True(t, result.Converged)

		groups := make([][]int, 0, 2)
		for _, cluster := range result.Clusters {
			members := append([]int(nil), cluster...)
			sort.Ints(members)
			groups = append(groups, members)
		}
		sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
		assert.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}}, groups)
	})

	t.Run("centroid is the mean of its members", func(t *testing.T) {
		data := [][]float64{{1, 1}, {3, 3}}

		result, err := NewKMeans(1, seeded(3)).Cluster(data)
		require.NoError(t, err)
		require.Len(t, result.Centroids, 1)
		assert.InDeltaSlice(t, []float64{2, 2}, result.Centroids[0], 1e-12)
		assert.Equal(t, []int{0, 1}, result.Clusters[0])
	})

	t.Run("clamps k to population size", func(t *testing.T) {
		data := [][]float64{{1, 0}, {0, 1}}

		result, err := NewKMeans(5, seeded(11)).Cluster(data)
		require.NoError(t, err)
		assert.Len(t, result.Clusters, 2)
		assert.Len(t, result.Centroids, 2)
		assertPartition(t, result, len(data))
	})

	t.Run("non positive k yields a single cluster", func(t *testing.T) {
		data := [][]float64{{1}, {2}, {3}}

		result, err := NewKMeans(0, seeded(5)).Cluster(data)
		require.NoError(t, err)
		require.Len(t, result.Clusters, 1)
		assert.Equal(t, []int{0, 1, 2}, result.Clusters[0])
	})

	t.Run("terminates within max iterations", func(t *testing.T) {
		rng := seeded(42)
		data := make([][]float64, 200)
		for i := range data {
			data[i] = []float64{rng.Float64(), rng.Float64(), rng.Float64()}
		}

		for _, maxIterations := range []int{1, 2, 5} {
			km := NewKMeans(4, seeded(int64(maxIterations)))
			km.MaxIterations = maxIterations
			km.Threshold = 1e-300

			result, err := km.Cluster(data)
			require.NoError(t, err)
			assert.LessOrEqual(t, result.Iterations, maxIterations)
			assertPartition(t, result, len(data))
		}
	})

	t.Run("same seed gives same clusters", func(t *testing.T) {
		data := [][]float64{{0, 1}, {1, 0}, {0.5, 0.5}, {0.9, 0.1}, {0.2, 0.8}}

		first, err := NewKMeans(2, seeded(99)).Cluster(data)
		require.NoError(t, err)
		second, err := NewKMeans(2, seeded(99)).Cluster(data)
		require.NoError(t, err)

		assert.Equal(t, first.Clusters, second.Clusters)
		assert.Equal(t, first.Centroids, second.Centroids)
	})

	t.Run("duplicate points keep stale centroid for the empty cluster", func(t *testing.T) {
		// Both centroids start on identical points, so ties send every point to cluster 0
		data := [][]float64{{1, 1}, {1, 1}, {1, 1}}

		result, err := NewKMeans(2, seeded(1)).Cluster(data)
		require.NoError(t, err)
		require.Len(t, result.Clusters, 2)
		assert.Equal(t, []int{0, 1, 2}, result.Clusters[0])
		assert.Empty(t, result.Clusters[1])
		assert.Equal(t, []float64{1, 1}, result.Centroids[1])
		assert.True(t, result.Converged)
	})

	t.Run("mixed dimensionality is reported", func(t *testing.T) {
		data := [][]float64{{1, 2}, {1, 2, 3}}

		_, err := NewKMeans(2, seeded(1)).Cluster(data)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestAssignToClusters_TiesGoToLowestIndex(t *testing.T) {
	data := [][]float64{{0.5}}
	centroids := [][]float64{{0}, {1}}

	clusters, err := assignToClusters(data, centroids)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0}, {}}, clusters)
}

func TestHasConverged_SkipsEmptyClusters(t *testing.T) {
	old := [][]float64{{0, 0}, {5, 5}}

	converged, err := hasConverged(old, [][]float64{{0, 0.0001}, nil}, DefaultConvergenceThreshold)
	require.NoError(t, err)
	assert.True(t, converged)

	converged, err = hasConverged(old, [][]float64{{0, 1}, nil}, DefaultConvergenceThreshold)
	require.NoError(t, err)
	assert.False(t, converged)
}
