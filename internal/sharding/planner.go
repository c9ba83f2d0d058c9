package sharding

import (
	"fmt"
	"math/bits"

	bencherr "github.com/23skdu/annreports/internal/errors"
)

// Shard is a contiguous, named slice of a vector collection together with
// the minimum cluster size used when indexing it.
type Shard struct {
	Name      string
	Ordinal   int
	Offset    int
	Vectors   [][]float32
	Threshold int
}

// Len returns the shard cardinality.
func (s Shard) Len() int {
	return len(s.Vectors)
}

// Name returns the stable identifier of the i-th shard.
func Name(i int) string {
	return fmt.Sprintf("shard-%d", i)
}

// Threshold returns ceil(log2(cardinality)), the minimum cluster size for a
// shard of that cardinality. Cardinalities of 0 and 1 give 0.
func Threshold(cardinality int) int {
	if cardinality <= 1 {
		return 0
	}
	return bits.Len(uint(cardinality - 1))
}

// Plan splits vectors into n contiguous shards of len/n vectors each; the
// last shard also takes the remainder. Shards share the backing array of
// vectors, nothing is copied.
func Plan(vectors [][]float32, n int) ([]Shard, error) {
	if n < 1 {
		return nil, bencherr.NewValidationError("plan_shards",
			fmt.Sprintf("shard count must be at least 1, got %d", n))
	}
	cardinality := len(vectors)
	if n > cardinality {
		return nil, bencherr.NewDegenerateShardError(cardinality, n)
	}

	chunk := cardinality / n
	shards := make([]Shard, n)
	for i := range shards {
		start := i * chunk
		end := start + chunk
		if i == n-1 {
			end = cardinality
		}
		shards[i] = Shard{
			Name:      Name(i),
			Ordinal:   i,
			Offset:    start,
			Vectors:   vectors[start:end:end],
			Threshold: Threshold(end - start),
		}
	}
	return shards, nil
}

// Sizes returns the cardinality of each shard in order.
func Sizes(shards []Shard) []int {
	sizes := make([]int, len(shards))
	for i, s := range shards {
		sizes[i] = s.Len()
	}
	return sizes
}

// Counts returns the geometric progression of shard counts 1, 2, 4, ... not
// exceeding max.
func Counts(max int) []int {
	var out []int
	for n := 1; n <= max && n > 0; n *= 2 {
		out = append(out, n)
	}
	return out
}
