package engine

import (
	"fmt"
	"math"
	"math/rand"

	bencherr "github.com/23skdu/annreports/internal/errors"
	"github.com/23skdu/annreports/internal/hits"
	"github.com/23skdu/annreports/internal/metric"
	"github.com/coder/hnsw"
)

// GraphIndex serves one shard: the raw vectors for the linear scan and an
// HNSW graph over the same vectors for the approximate algorithms.
// Identifiers are positions within the shard. The graph is never mutated
// after Build, so searches need no locking.
type GraphIndex struct {
	graph    *hnsw.Graph[int]
	vectors  [][]float32
	distance metric.Func
	dims     int
}

// Build constructs a GraphIndex over vectors.
func Build(vectors [][]float32, m metric.Metric, opts BuildOptions) (*GraphIndex, error) {
	if len(vectors) == 0 {
		return nil, bencherr.NewIndexError("build_index", "cannot index an empty vector set")
	}
	if m.Distance == nil {
		return nil, bencherr.NewIndexError("build_index", "metric has no distance function")
	}
	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dims {
			return nil, bencherr.NewIndexError("build_index",
				fmt.Sprintf("vector %d has %d dimensions, expected %d", i, len(v), dims))
		}
	}

	graph := hnsw.NewGraph[int]()
	graph.M = clampM(opts.MinClusterSize)
	graph.Ml = 1 / math.Log(float64(graph.M))
	graph.Rng = rand.New(rand.NewSource(opts.Seed))
	if opts.EfSearch > 0 {
		graph.EfSearch = opts.EfSearch
	}
	distance := m.Distance
	graph.Distance = func(a, b []float32) float32 {
		return float32(distance(a, b))
	}

	for id, v := range vectors {
		graph.Add(hnsw.MakeNode(id, v))
	}

	return &GraphIndex{
		graph:    graph,
		vectors:  vectors,
		distance: distance,
		dims:     dims,
	}, nil
}

func clampM(minClusterSize int) int {
	switch {
	case minClusterSize < MinM:
		return MinM
	case minClusterSize > MaxM:
		return MaxM
	default:
		return minClusterSize
	}
}

// Len implements Index.
func (g *GraphIndex) Len() int {
	return len(g.vectors)
}

// Knn implements Index.
func (g *GraphIndex) Knn(query []float32, k int, alg Algorithm) (hits.HitSet, error) {
	if k <= 0 {
		return nil, bencherr.NewSearchError("knn", fmt.Sprintf("k must be positive, got %d", k))
	}
	if len(query) != g.dims {
		return nil, g.dimsError("knn", query)
	}

	switch alg {
	case Linear:
		return linearKnn(g.vectors, g.distance, query, k), nil
	case HNSW:
		return g.graphKnn(query, k, k), nil
	case HNSWOversample:
		return g.graphKnn(query, k, k*OversampleFactor), nil
	default:
		return nil, unsupported(KindKnn, alg)
	}
}

// Rnn implements Index.
func (g *GraphIndex) Rnn(query []float32, radius float64, alg Algorithm) (hits.HitSet, error) {
	if len(query) != g.dims {
		return nil, g.dimsError("rnn", query)
	}
	if math.IsNaN(radius) || radius < 0 {
		return nil, bencherr.NewSearchError("rnn", fmt.Sprintf("radius must be a non-negative number, got %v", radius))
	}

	switch alg {
	case Linear:
		return linearRnn(g.vectors, g.distance, query, radius), nil
	case HNSWExpand:
		return g.graphRnn(query, radius), nil
	default:
		return nil, unsupported(KindRnn, alg)
	}
}

// graphKnn searches the graph for width candidates and keeps the k nearest
// by exact distance.
func (g *GraphIndex) graphKnn(query []float32, k, width int) hits.HitSet {
	return g.search(query, width).Nearest(k)
}

// graphRnn widens the graph search until it either covers the whole shard
// or its farthest candidate falls outside radius, then filters.
func (g *GraphIndex) graphRnn(query []float32, radius float64) hits.HitSet {
	width := 8
	for {
		if width > g.Len() {
			width = g.Len()
		}
		candidates := g.search(query, width)
		if width == g.Len() || len(candidates) < width || hits.Compare(candidates.MaxDistance(), radius) > 0 {
			out := candidates[:0]
			for _, c := range candidates {
				if c.Distance <= radius {
					out = append(out, c)
				}
			}
			return out
		}
		width *= 2
	}
}

func (g *GraphIndex) search(query []float32, width int) hits.HitSet {
	nodes := g.graph.Search(query, width)

	out := make(hits.HitSet, len(nodes))
	for i, n := range nodes {
		out[i] = hits.Hit{ID: n.Key, Distance: g.distance(query, g.vectors[n.Key])}
	}
	return out
}

func (g *GraphIndex) dimsError(op string, query []float32) error {
	return bencherr.NewSearchError(op,
		fmt.Sprintf("query has %d dimensions, index has %d", len(query), g.dims))
}
