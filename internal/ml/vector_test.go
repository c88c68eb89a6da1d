package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	t.Run("euclidean distance", func(t *testing.T) {
		d, err := Distance([]float64{0, 0}, []float64{3, 4})
		require.NoError(t, err)
		assert.InDelta(t, 5.0, d, 1e-12)
	})

	t.Run("symmetric", func(t *testing.T) {
		vectors := [][]float64{
			{0.1, 0.7, 0.2},
			{1, 0, 0},
			{-3.5, 2, 8},
			{0, 0, 0},
		}
		for _, a := range vectors {
			for _, b := range vectors {
				ab, err := Distance(a, b)
				require.NoError(t, err)
				ba, err := Distance(b, a)
				require.NoError(t, err)
				assert.Equal(t, ab, ba)
			}
		}
	})

	t.Run("identity", func(t *testing.T) {
		for _, v := range [][]float64{{}, {1}, {0.25, 0.25, 0.5}, {-1, 42, 7}} {
			d, err := Distance(v, v)
			require.NoError(t, err)
			assert.Equal(t, 0.0, d)
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := Distance([]float64{1, 2}, []float64{1, 2, 3})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestNormalize(t *testing.T) {
	t.Run("divides by sum", func(t *testing.T) {
		normalized := Normalize([]float64{1, 1, 2})
		assert.InDeltaSlice(t, []float64{0.25, 0.25, 0.5}, normalized, 1e-12)
	})

	t.Run("zero sum returns input unchanged", func(t *testing.T) {
		v := []float64{0, 0, 0}
		assert.Equal(t, []float64{0, 0, 0}, Normalize(v))
	})

	t.Run("does not mutate input", func(t *testing.T) {
		v := []float64{2, 6}
		_ = Normalize(v)
		assert.Equal(t, []float64{2, 6}, v)
	})

	t.Run("idempotent for nonzero sums", func(t *testing.T) {
		for _, v := range [][]float64{{3, 1, 4, 1, 5}, {0.2, 0, 0}, {10, 20}} {
			once := Normalize(v)
			twice := Normalize(once)
			require.Len(t, twice, len(once))
			for i := range once {
				assert.InDelta(t, once[i], twice[i], 1e-12)
			}

			sum := 0.0
			for _, x := range once {
				sum += x
			}
			assert.True(t, math.Abs(sum-1) < 1e-12)
		}
	})
}
