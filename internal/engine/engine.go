// Package engine is the search engine exercised by the harness: a linear
// scan baseline and HNSW graphs from github.com/coder/hnsw, built per shard
// and queried through a single Index interface.
package engine

import (
	"fmt"

	bencherr "github.com/23skdu/annreports/internal/errors"
	"github.com/23skdu/annreports/internal/hits"
)

// Algorithm names one search strategy.
type Algorithm string

const (
	// Linear is the exhaustive scan. It is exact and serves as ground truth.
	Linear Algorithm = "Linear"
	// HNSW searches the graph with k candidates.
	HNSW Algorithm = "HNSW"
	// HNSWOversample searches the graph with OversampleFactor*k candidates and
	// keeps the k nearest.
	HNSWOversample Algorithm = "HNSWOversample"
	// HNSWExpand answers radius queries by doubling the graph search width
	// until the farthest candidate lies outside the radius.
	HNSWExpand Algorithm = "HNSWExpand"
)

// OversampleFactor is the candidate multiplier of HNSWOversample.
const OversampleFactor = 4

// Kind distinguishes k-nearest from radius-bounded searches.
type Kind string

const (
	KindKnn Kind = "knn"
	KindRnn Kind = "rnn"
)

// KnnAlgorithms returns every algorithm that answers knn queries, baseline
// first.
func KnnAlgorithms() []Algorithm {
	return []Algorithm{Linear, HNSW, HNSWOversample}
}

// RnnAlgorithms returns every algorithm that answers rnn queries, baseline
// first.
func RnnAlgorithms() []Algorithm {
	return []Algorithm{Linear, HNSWExpand}
}

// Supports reports whether alg answers searches of the given kind.
func Supports(kind Kind, alg Algorithm) bool {
	var algs []Algorithm
	switch kind {
	case KindKnn:
		algs = KnnAlgorithms()
	case KindRnn:
		algs = RnnAlgorithms()
	}
	for _, a := range algs {
		if a == alg {
			return true
		}
	}
	return false
}

// ParseAlgorithm returns the algorithm with the given name.
func ParseAlgorithm(name string) (Algorithm, error) {
	for _, a := range append(KnnAlgorithms(), RnnAlgorithms()...) {
		if string(a) == name {
			return a, nil
		}
	}
	return "", bencherr.NewValidationError("parse_algorithm", fmt.Sprintf("unknown algorithm %q", name))
}

// Index answers searches over a fixed vector collection. Implementations are
// read-only once built and safe for concurrent use.
type Index interface {
	// Knn returns the k nearest points to query.
	Knn(query []float32, k int, alg Algorithm) (hits.HitSet, error)
	// Rnn returns every point within radius of query.
	Rnn(query []float32, radius float64, alg Algorithm) (hits.HitSet, error)
	// Len returns the number of indexed points.
	Len() int
}

// BuildOptions controls index construction.
type BuildOptions struct {
	// MinClusterSize is the partition threshold derived for the shard. The
	// graph uses it as its neighbourhood size M, clamped to [MinM, MaxM].
	MinClusterSize int
	// Seed makes graph construction deterministic.
	Seed int64
	// EfSearch is the graph search width; zero keeps the library default.
	EfSearch int
}

// Neighbourhood size bounds for graph construction.
const (
	MinM = 4
	MaxM = 64
)

func unsupported(kind Kind, alg Algorithm) error {
	return bencherr.NewSearchError(string(kind), fmt.Sprintf("algorithm %q does not support %s search", alg, kind)).
		WithContext("algorithm", string(alg))
}
