// Package report holds the per-configuration benchmark record and its
// on-disk artifact.
package report

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	bencherr "github.com/23skdu/annreports/internal/errors"
	"gonum.org/v1/gonum/stat"
)

// Extension is the file extension of report artifacts.
const Extension = ".json"

// ID identifies one benchmark configuration.
type ID struct {
	Dataset   string
	Metric    string
	K         int
	Algorithm string
	NumShards int
}

// FileName returns {dataset}_{metric}_{k}_{algorithm}_{numShards}.json.
// Underscores, percent signs, path separators and control characters inside
// the string components are percent-encoded, so distinct IDs never share a
// name and no name escapes the reports directory.
func (id ID) FileName() string {
	return strings.Join([]string{
		escape(id.Dataset),
		escape(id.Metric),
		strconv.Itoa(id.K),
		escape(id.Algorithm),
		strconv.Itoa(id.NumShards),
	}, "_") + Extension
}

func (id ID) String() string {
	return fmt.Sprintf("%s/%s k=%d %s shards=%d", id.Dataset, id.Metric, id.K, id.Algorithm, id.NumShards)
}

func escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c == '%', c == '/', c == '\\', c == ':', c < 0x20, c == 0x7f:
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Report is the record of one configuration. Reports are built once by New
// and not modified afterwards.
type Report struct {
	DataName       string    `json:"data_name"`
	MetricName     string    `json:"metric_name"`
	Cardinality    int       `json:"cardinality"`
	Dimensionality int       `json:"dimensionality"`
	ShardSizes     []int     `json:"shard_sizes"`
	NumQueries     int       `json:"num_queries"`
	K              int       `json:"k"`
	Kind           string    `json:"kind"`
	Algorithm      string    `json:"algorithm"`
	Elapsed        []float64 `json:"elapsed"`
	Recalls        []float64 `json:"recalls,omitempty"`

	ElapsedMean    float64  `json:"elapsed_mean"`
	ElapsedStd     float64  `json:"elapsed_std"`
	ElapsedP50     float64  `json:"elapsed_p50"`
	ElapsedP99     float64  `json:"elapsed_p99"`
	ThroughputMean float64  `json:"throughput_mean"`
	ThroughputStd  float64  `json:"throughput_std"`
	RecallMean     *float64 `json:"recall_mean,omitempty"`
}

// Shape describes the benchmarked collection.
type Shape struct {
	Cardinality    int
	Dimensionality int
	ShardSizes     []int
}

// New assembles a report and derives its summary statistics. elapsed holds
// per-query seconds in query order; recalls is nil when recall was not
// measured.
func New(id ID, kind string, shape Shape, elapsed, recalls []float64) (*Report, error) {
	if id.NumShards != len(shape.ShardSizes) {
		return nil, bencherr.NewValidationError("new_report",
			fmt.Sprintf("%d shard sizes for %d shards", len(shape.ShardSizes), id.NumShards)).
			WithContext("report", id.String())
	}
	if recalls != nil && len(recalls) != len(elapsed) {
		return nil, bencherr.NewValidationError("new_report",
			fmt.Sprintf("%d recalls for %d queries", len(recalls), len(elapsed))).
			WithContext("report", id.String())
	}

	r := &Report{
		DataName:       id.Dataset,
		MetricName:     id.Metric,
		Cardinality:    shape.Cardinality,
		Dimensionality: shape.Dimensionality,
		ShardSizes:     slices.Clone(shape.ShardSizes),
		NumQueries:     len(elapsed),
		K:              id.K,
		Kind:           kind,
		Algorithm:      id.Algorithm,
		Elapsed:        slices.Clone(elapsed),
		Recalls:        slices.Clone(recalls),
	}
	r.summarize()
	return r, nil
}

func (r *Report) summarize() {
	if len(r.Elapsed) > 0 {
		mean, variance := stat.PopMeanVariance(r.Elapsed, nil)
		r.ElapsedMean = mean
		r.ElapsedStd = math.Sqrt(variance)

		sorted := slices.Clone(r.Elapsed)
		slices.Sort(sorted)
		r.ElapsedP50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		r.ElapsedP99 = stat.Quantile(0.99, stat.Empirical, sorted, nil)

		// first-order propagation of the elapsed spread through 1/x
		if mean > 0 {
			r.ThroughputMean = 1 / mean
			r.ThroughputStd = r.ElapsedStd / (mean * mean)
		}
	}
	if len(r.Recalls) > 0 {
		m := stat.Mean(r.Recalls, nil)
		r.RecallMean = &m
	}
}

// ID returns the configuration the report belongs to.
func (r *Report) ID() ID {
	return ID{
		Dataset:   r.DataName,
		Metric:    r.MetricName,
		K:         r.K,
		Algorithm: r.Algorithm,
		NumShards: len(r.ShardSizes),
	}
}

// NumShards returns the number of shards of the benchmarked index.
func (r *Report) NumShards() int {
	return len(r.ShardSizes)
}
