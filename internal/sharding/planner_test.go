package sharding

import (
	"math"
	"testing"

	bencherr "github.com/23skdu/annreports/internal/errors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeVectors(n, dim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(i*dim + j)
		}
		out[i] = v
	}
	return out
}

func TestPlan_Examples(t *testing.T) {
	vectors := makeVectors(100, 4)

	tests := []struct {
		shards   int
		expected []int
	}{
		{1, []int{100}},
		{3, []int{33, 33, 34}},
		{4, []int{25, 25, 25, 25}},
		{7, []int{14, 14, 14, 14, 14, 14, 16}},
		{100, nil},
	}

	for _, tt := range tests {
		shards, err := Plan(vectors, tt.shards)
		require.NoError(t, err)
		if tt.expected != nil {
			assert.Equal(t, tt.expected, Sizes(shards))
		}
		assert.Len(t, shards, tt.shards)
	}
}

func TestPlan_NamesOffsetsThresholds(t *testing.T) {
	vectors := makeVectors(100, 4)
	shards, err := Plan(vectors, 3)
	require.NoError(t, err)

	assert.Equal(t, "shard-0", shards[0].Name)
	assert.Equal(t, "shard-2", shards[2].Name)
	assert.Equal(t, []int{0, 33, 66}, []int{shards[0].Offset, shards[1].Offset, shards[2].Offset})
	assert.Equal(t, 6, shards[0].Threshold) // ceil(log2(33))
	assert.Equal(t, 6, shards[2].Threshold) // ceil(log2(34))

	// contiguous views into the source
	assert.Equal(t, vectors[33][0], shards[1].Vectors[0][0])
	assert.Equal(t, vectors[99][3], shards[2].Vectors[33][3])
}

func TestPlan_Degenerate(t *testing.T) {
	_, err := Plan(makeVectors(3, 2), 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, bencherr.ErrDegenerateShard)

	_, err = Plan(nil, 1)
	assert.ErrorIs(t, err, bencherr.ErrDegenerateShard)

	_, err = Plan(makeVectors(3, 2), 0)
	assert.ErrorIs(t, err, bencherr.ErrInvalidArgument)
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		cardinality int
		expected    int
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {1024, 10}, {1025, 11},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Threshold(tt.cardinality), "cardinality %d", tt.cardinality)
	}
}

func TestCounts(t *testing.T) {
	assert.Equal(t, []int{1, 2, 4, 8}, Counts(8))
	assert.Equal(t, []int{1, 2, 4}, Counts(7))
	assert.Nil(t, Counts(0))
}

// TestPlanProperties validates coverage and chunk sizes using property-based testing.
func TestPlanProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("sizes sum to cardinality with remainder in last shard", prop.ForAll(
		func(cardinality, n int) bool {
			if n > cardinality {
				n = cardinality
			}
			shards, err := Plan(makeVectors(cardinality, 1), n)
			if err != nil {
				return false
			}
			chunk := cardinality / n
			sum := 0
			for i, s := range shards {
				sum += s.Len()
				if i < n-1 && s.Len() != chunk {
					return false
				}
			}
			return sum == cardinality && shards[n-1].Len() == cardinality-(n-1)*chunk
		},
		gen.IntRange(1, 2000),
		gen.IntRange(1, 64),
	))

	properties.Property("shards tile the source without gaps", prop.ForAll(
		func(cardinality, n int) bool {
			if n > cardinality {
				n = cardinality
			}
			shards, err := Plan(makeVectors(cardinality, 1), n)
			if err != nil {
				return false
			}
			next := 0
			for _, s := range shards {
				if s.Offset != next {
					return false
				}
				next += s.Len()
			}
			return next == cardinality
		},
		gen.IntRange(1, 2000),
		gen.IntRange(1, 64),
	))

	properties.Property("threshold is ceil(log2(size))", prop.ForAll(
		func(c int) bool {
			return Threshold(c) == int(math.Ceil(math.Log2(float64(c))))
		},
		gen.IntRange(1, 1<<20),
	))

	properties.TestingRun(t)
}
