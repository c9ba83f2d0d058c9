// Package metric resolves distance metric names to distance functions.
// Resolution happens once per dataset; the returned Metric is immutable and
// safe to share between sweep workers.
package metric

import (
	"math"
	"sort"
	"strings"

	bencherr "github.com/23skdu/annreports/internal/errors"
	"github.com/viterin/vek/vek32"
)

// Func computes the distance between two vectors of equal length.
type Func func(a, b []float32) float64

// Metric pairs a canonical name with its distance function.
type Metric struct {
	Name     string
	Distance Func
}

// Canonical metric names.
const (
	Euclidean   = "euclidean"
	SqEuclidean = "sqeuclidean"
	Cosine      = "cosine"
	Manhattan   = "manhattan"
)

var registry = map[string]Metric{
	Euclidean:   {Name: Euclidean, Distance: EuclideanDistance},
	SqEuclidean: {Name: SqEuclidean, Distance: SquaredEuclideanDistance},
	Cosine:      {Name: Cosine, Distance: CosineDistance},
	Manhattan:   {Name: Manhattan, Distance: ManhattanDistance},
}

var aliases = map[string]string{
	"euclidean":   Euclidean,
	"l2":          Euclidean,
	"sqeuclidean": SqEuclidean,
	"l2sq":        SqEuclidean,
	"cosine":      Cosine,
	"angular":     Cosine,
	"manhattan":   Manhattan,
	"l1":          Manhattan,
	"cityblock":   Manhattan,
}

// Resolve maps a case-insensitive metric name or alias to its Metric.
// Unknown names return an error matching errors.ErrUnknownMetric.
func Resolve(name string) (Metric, error) {
	canonical, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Metric{}, bencherr.NewUnknownMetricError(name)
	}
	return registry[canonical], nil
}

// Names returns the canonical metric names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EuclideanDistance is the L2 distance, vectorised by vek32.
func EuclideanDistance(a, b []float32) float64 {
	return float64(vek32.Distance(a, b))
}

// SquaredEuclideanDistance is the squared L2 distance.
func SquaredEuclideanDistance(a, b []float32) float64 {
	diff := vek32.Sub(a, b)
	return float64(vek32.Dot(diff, diff))
}

// CosineDistance is 1 - cosine similarity. A zero vector is at distance 1
// from everything, including itself.
func CosineDistance(a, b []float32) float64 {
	na := float64(vek32.Norm(a))
	nb := float64(vek32.Norm(b))
	if na == 0 || nb == 0 {
		return 1
	}
	sim := float64(vek32.Dot(a, b)) / (na * nb)
	// rounding can push similarity just outside [-1, 1]
	sim = math.Max(-1, math.Min(1, sim))
	return 1 - sim
}

// ManhattanDistance is the L1 distance.
func ManhattanDistance(a, b []float32) float64 {
	return float64(vek32.ManhattanDistance(a, b))
}
