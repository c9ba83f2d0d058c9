package dataset

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// SyntheticPrefix marks generated dataset names: random-{cardinality}-{dimensionality}.
const SyntheticPrefix = "random-"

// Synthetic generates uniform random datasets. Queries are drawn from the
// same distribution; there are max(1, cardinality/QueryFraction) of them.
type Synthetic struct {
	Seed          int64
	QueryFraction int
}

// Read implements Reader.
func (s Synthetic) Read(ctx context.Context, name string) (VectorSet, VectorSet, error) {
	cardinality, dims, ok := parseSynthetic(name)
	if !ok {
		return VectorSet{}, VectorSet{}, ErrUnrecognized
	}
	if err := ctx.Err(); err != nil {
		return VectorSet{}, VectorSet{}, err
	}

	fraction := s.QueryFraction
	if fraction <= 0 {
		fraction = 100
	}
	numQueries := cardinality / fraction
	if numQueries < 1 {
		numQueries = 1
	}

	rng := rand.New(rand.NewSource(s.Seed))
	train := VectorSet{Name: name + "-train", Vectors: uniform(rng, cardinality, dims)}
	queries := VectorSet{Name: name + "-test", Vectors: uniform(rng, numQueries, dims)}
	if err := checkPair(name, train, queries); err != nil {
		return VectorSet{}, VectorSet{}, err
	}
	return train, queries, nil
}

// SyntheticName returns the dataset name Synthetic generates for the shape.
func SyntheticName(cardinality, dims int) string {
	return fmt.Sprintf("%s%d-%d", SyntheticPrefix, cardinality, dims)
}

func parseSynthetic(name string) (int, int, bool) {
	rest, ok := strings.CutPrefix(name, SyntheticPrefix)
	if !ok {
		return 0, 0, false
	}
	c, d, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, 0, false
	}
	cardinality, err := strconv.Atoi(c)
	if err != nil || cardinality <= 0 {
		return 0, 0, false
	}
	dims, err := strconv.Atoi(d)
	if err != nil || dims <= 0 {
		return 0, 0, false
	}
	return cardinality, dims, true
}

func uniform(rng *rand.Rand, n, dims int) [][]float32 {
	backing := make([]float32, n*dims)
	for i := range backing {
		backing[i] = rng.Float32()
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = backing[i*dims : (i+1)*dims : (i+1)*dims]
	}
	return out
}
