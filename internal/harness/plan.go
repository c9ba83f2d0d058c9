package harness

import (
	"fmt"
	"strings"

	"github.com/23skdu/annreports/internal/engine"
	bencherr "github.com/23skdu/annreports/internal/errors"
)

// DatasetSpec names a dataset and the metric to benchmark it under.
type DatasetSpec struct {
	Name   string
	Metric string
}

func (d DatasetSpec) String() string {
	return d.Name + ":" + d.Metric
}

// ParseDatasetSpec parses "name:metric".
func ParseDatasetSpec(s string) (DatasetSpec, error) {
	name, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || name == "" || m == "" {
		return DatasetSpec{}, bencherr.NewConfigurationError("parse_dataset",
			fmt.Sprintf("dataset %q must have the form name:metric", s))
	}
	return DatasetSpec{Name: name, Metric: m}, nil
}

// ParseDatasetSpecs parses every entry of specs.
func ParseDatasetSpecs(specs []string) ([]DatasetSpec, error) {
	out := make([]DatasetSpec, 0, len(specs))
	for _, s := range specs {
		d, err := ParseDatasetSpec(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Plan is the sweep grid applied to every dataset.
type Plan struct {
	// MaxShards bounds the shard counts 1, 2, 4, ...
	MaxShards int
	// KValues are swept in order for every shard count.
	KValues []int
	// Recall enables per-query recall for non-baseline algorithms.
	Recall bool
	// Seed is the base seed for index construction.
	Seed int64
	// EfSearch overrides the graph search width when positive.
	EfSearch int
	// KnnAlgorithms must start with engine.Linear when RnnAlgorithms is
	// non-empty; the linear sweep supplies the rnn radii.
	KnnAlgorithms []engine.Algorithm
	RnnAlgorithms []engine.Algorithm
}

// DefaultPlan sweeps up to 8 shards, k in powers of ten and every algorithm.
func DefaultPlan() Plan {
	return Plan{
		MaxShards:     8,
		KValues:       []int{1, 10, 100},
		Recall:        true,
		Seed:          42,
		KnnAlgorithms: engine.KnnAlgorithms(),
		RnnAlgorithms: engine.RnnAlgorithms(),
	}
}

// Validate checks the plan is runnable.
func (p Plan) Validate() error {
	if p.MaxShards < 1 {
		return bencherr.NewConfigurationError("validate_plan", "max shards must be at least 1")
	}
	if len(p.KValues) == 0 {
		return bencherr.NewConfigurationError("validate_plan", "at least one k is required")
	}
	for _, k := range p.KValues {
		if k < 1 {
			return bencherr.NewConfigurationError("validate_plan", fmt.Sprintf("k must be positive, got %d", k))
		}
	}
	for _, a := range p.KnnAlgorithms {
		if !engine.Supports(engine.KindKnn, a) {
			return bencherr.NewConfigurationError("validate_plan", fmt.Sprintf("%q is not a knn algorithm", a))
		}
	}
	for _, a := range p.RnnAlgorithms {
		if !engine.Supports(engine.KindRnn, a) {
			return bencherr.NewConfigurationError("validate_plan", fmt.Sprintf("%q is not an rnn algorithm", a))
		}
	}
	if len(p.RnnAlgorithms) > 0 && (len(p.KnnAlgorithms) == 0 || p.KnnAlgorithms[0] != engine.Linear) {
		return bencherr.NewConfigurationError("validate_plan", "rnn sweeps need Linear as the first knn algorithm")
	}
	return nil
}
