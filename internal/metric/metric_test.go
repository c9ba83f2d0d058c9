package metric

import (
	"math"
	"testing"

	bencherr "github.com/23skdu/annreports/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"euclidean", Euclidean},
		{"Euclidean", Euclidean},
		{"L2", Euclidean},
		{"  cosine ", Cosine},
		{"ANGULAR", Cosine},
		{"sqeuclidean", SqEuclidean},
		{"cityblock", Manhattan},
		{"l1", Manhattan},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, err := Resolve(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.Name)
			assert.NotNil(t, m.Distance)
		})
	}
}

func TestResolve_Unknown(t *testing.T) {
	for _, name := range []string{"", "hamming", "jaccard", "euclid"} {
		_, err := Resolve(name)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, bencherr.ErrUnknownMetric)
		assert.True(t, bencherr.IsSkip(err))
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{Cosine, Euclidean, Manhattan, SqEuclidean}, Names())
}

func TestDistances(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 6, 3}

	assert.InDelta(t, 5.0, EuclideanDistance(a, b), 1e-5)
	assert.InDelta(t, 25.0, SquaredEuclideanDistance(a, b), 1e-9)
	assert.InDelta(t, 7.0, ManhattanDistance(a, b), 1e-9)

	assert.InDelta(t, 0.0, CosineDistance(a, a), 1e-6)
	assert.InDelta(t, 1.0, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, 2.0, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, 1.0, CosineDistance([]float32{0, 0}, []float32{1, 1}))
}

func TestDistances_Symmetric(t *testing.T) {
	a := []float32{0.5, -1.25, 3, 8}
	b := []float32{-2, 0.75, 1, 4}

	for _, name := range Names() {
		m, err := Resolve(name)
		require.NoError(t, err)
		assert.InDelta(t, m.Distance(a, b), m.Distance(b, a), 1e-6, name)
		assert.GreaterOrEqual(t, m.Distance(a, b), 0.0, name)
	}
}

func TestDistances_MatchReference(t *testing.T) {
	a := []float32{1, -2, 3.5, 0, 7.25, -0.5, 2, 9, -4}
	b := []float32{0, 2, -1, 4, 1.5, -3, 2, -6, 0.25}

	var l1, l2sq float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		l1 += math.Abs(d)
		l2sq += d * d
	}

	assert.InDelta(t, l1, ManhattanDistance(a, b), 1e-4)
	assert.InDelta(t, l2sq, SquaredEuclideanDistance(a, b), 1e-3)
	assert.InDelta(t, math.Sqrt(l2sq), EuclideanDistance(a, b), 1e-4)
	assert.InDelta(t, 13.5, ManhattanDistance(a[:4], b[:4]), 1e-6)
}
