package engine

import (
	"runtime"

	bencherr "github.com/23skdu/annreports/internal/errors"
	"github.com/23skdu/annreports/internal/hits"
	"github.com/23skdu/annreports/internal/metric"
	"github.com/23skdu/annreports/internal/sharding"
	"golang.org/x/sync/errgroup"
)

// ShardedIndex fans each query out to one GraphIndex per shard and merges
// the answers. Identifiers are global positions in the unsharded collection.
type ShardedIndex struct {
	shards  []*GraphIndex
	offsets []int
	size    int
}

// BuildSharded builds one GraphIndex per shard, in parallel. Each shard uses
// its own Threshold as MinClusterSize and opts.Seed plus its ordinal as seed.
func BuildSharded(shards []sharding.Shard, m metric.Metric, opts BuildOptions) (*ShardedIndex, error) {
	if len(shards) == 0 {
		return nil, bencherr.NewIndexError("build_sharded", "no shards to index")
	}

	idx := &ShardedIndex{
		shards:  make([]*GraphIndex, len(shards)),
		offsets: make([]int, len(shards)),
	}

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range shards {
		idx.offsets[i] = s.Offset
		idx.size += s.Len()

		shardOpts := opts
		shardOpts.MinClusterSize = s.Threshold
		shardOpts.Seed = opts.Seed + int64(s.Ordinal)
		g.Go(func() error {
			built, err := Build(s.Vectors, m, shardOpts)
			if err != nil {
				return bencherr.WrapIndexError(err, "build_sharded", "failed to index shard").
					WithContext("shard", s.Name)
			}
			idx.shards[i] = built
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Len implements Index.
func (s *ShardedIndex) Len() int {
	return s.size
}

// NumShards returns the number of shards.
func (s *ShardedIndex) NumShards() int {
	return len(s.shards)
}

// Knn implements Index. Every shard contributes its own k nearest and the
// merged set is cut back to k.
func (s *ShardedIndex) Knn(query []float32, k int, alg Algorithm) (hits.HitSet, error) {
	if len(s.shards) == 1 {
		return s.shards[0].Knn(query, k, alg)
	}
	merged := make(hits.HitSet, 0, k*len(s.shards))
	for i, shard := range s.shards {
		res, err := shard.Knn(query, k, alg)
		if err != nil {
			return nil, err
		}
		merged = append(merged, res.Offset(s.offsets[i])...)
	}
	return merged.Nearest(k), nil
}

// Rnn implements Index.
func (s *ShardedIndex) Rnn(query []float32, radius float64, alg Algorithm) (hits.HitSet, error) {
	if len(s.shards) == 1 {
		return s.shards[0].Rnn(query, radius, alg)
	}
	var merged hits.HitSet
	for i, shard := range s.shards {
		res, err := shard.Rnn(query, radius, alg)
		if err != nil {
			return nil, err
		}
		merged = append(merged, res.Offset(s.offsets[i])...)
	}
	return merged, nil
}
