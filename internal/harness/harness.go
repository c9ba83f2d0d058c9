// Package harness drives the benchmark: for every dataset it resolves the
// metric, loads the vectors, and sweeps shard counts, k values and
// algorithms, writing one report per configuration.
package harness

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/23skdu/annreports/internal/dataset"
	"github.com/23skdu/annreports/internal/engine"
	bencherr "github.com/23skdu/annreports/internal/errors"
	"github.com/23skdu/annreports/internal/measure"
	"github.com/23skdu/annreports/internal/metric"
	"github.com/23skdu/annreports/internal/metrics"
	"github.com/23skdu/annreports/internal/report"
	"github.com/23skdu/annreports/internal/sharding"
	"github.com/rs/zerolog"
)

// Harness runs a Plan over datasets.
type Harness struct {
	reader  dataset.Reader
	reports *report.Dir
	driver  *measure.Driver
	logger  zerolog.Logger
	plan    Plan
}

// New returns a Harness. The plan is validated on Run.
//
//nolint:gocritic // Logger passed by value for constructor simplicity
func New(reader dataset.Reader, reports *report.Dir, driver *measure.Driver, logger zerolog.Logger, plan Plan) *Harness {
	return &Harness{
		reader:  reader,
		reports: reports,
		driver:  driver,
		logger:  logger,
		plan:    plan,
	}
}

// Skip records a dataset that was not benchmarked.
type Skip struct {
	Dataset string
	Reason  string
}

// Failure records a configuration that produced no report.
type Failure struct {
	Dataset string
	Stage   string
	Err     error
}

// Summary is the outcome of a Run.
type Summary struct {
	Reports  []string
	Skipped  []Skip
	Failures []Failure
}

// Failed reports whether any configuration failed.
func (s *Summary) Failed() bool {
	return len(s.Failures) > 0
}

// configuration is the state threaded through one shard count.
type configuration struct {
	ds      DatasetSpec
	metric  metric.Metric
	train   dataset.VectorSet
	queries dataset.VectorSet
	shards  []sharding.Shard
	index   *engine.ShardedIndex
}

func (c *configuration) id(k int, alg engine.Algorithm) report.ID {
	return report.ID{
		Dataset:   c.ds.Name,
		Metric:    c.metric.Name,
		K:         k,
		Algorithm: string(alg),
		NumShards: c.index.NumShards(),
	}
}

// Run benchmarks every dataset in order. Unknown metrics and load failures
// skip the dataset; degenerate shard plans, build failures and search
// failures skip the affected configurations. A report that cannot be
// persisted, or a cancelled context, aborts the run.
func (h *Harness) Run(ctx context.Context, datasets []DatasetSpec) (*Summary, error) {
	if err := h.plan.Validate(); err != nil {
		return nil, err
	}
	summary := &Summary{}

	for _, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		log := h.logger.With().Str("dataset", ds.Name).Str("metric", ds.Metric).Logger()

		m, err := metric.Resolve(ds.Metric)
		switch {
		case bencherr.IsSkip(err):
			log.Warn().Err(err).Msg("Skipping dataset with unknown metric")
			metrics.DatasetsSkippedTotal.WithLabelValues("unknown_metric").Inc()
			summary.Skipped = append(summary.Skipped, Skip{Dataset: ds.String(), Reason: err.Error()})
			continue
		case err != nil:
			log.Error().Err(err).Msg("Cannot resolve metric")
			h.fail(summary, ds, "metric", err)
			continue
		}

		train, queries, err := h.reader.Read(ctx, ds.Name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			if !errors.Is(err, bencherr.ErrDatasetLoad) {
				err = bencherr.WrapDatasetError(err, "read_dataset", "failed to load dataset").
					WithContext("dataset", ds.Name)
			}
			log.Error().Err(err).Msg("Skipping dataset that failed to load")
			metrics.DatasetsSkippedTotal.WithLabelValues("load_failure").Inc()
			summary.Failures = append(summary.Failures, Failure{Dataset: ds.String(), Stage: "load", Err: err})
			continue
		}
		log.Info().
			Int("cardinality", train.Cardinality()).
			Int("dimensionality", train.Dimensionality()).
			Int("queries", queries.Cardinality()).
			Msg("Loaded dataset")

		if err := h.runDataset(ctx, log, ds, m, train, queries, summary); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

//nolint:gocritic // Logger passed by value
func (h *Harness) runDataset(ctx context.Context, log zerolog.Logger, ds DatasetSpec, m metric.Metric, train, queries dataset.VectorSet, summary *Summary) error {
	for _, n := range sharding.Counts(h.plan.MaxShards) {
		shards, err := sharding.Plan(train.Vectors, n)
		if err != nil {
			log.Error().Err(err).Int("shards", n).Msg("Cannot shard dataset, skipping remaining shard counts")
			h.fail(summary, ds, "shard", err)
			return nil
		}
		for _, s := range shards {
			metrics.ShardSize.WithLabelValues(ds.Name, s.Name).Set(float64(s.Len()))
		}

		start := time.Now()
		idx, err := engine.BuildSharded(shards, m, engine.BuildOptions{Seed: h.plan.Seed, EfSearch: h.plan.EfSearch})
		if err != nil {
			log.Error().Err(err).Int("shards", n).Msg("Index build failed")
			h.fail(summary, ds, "build", err)
			continue
		}
		metrics.IndexBuildSeconds.WithLabelValues(ds.Name, strconv.Itoa(n)).Observe(time.Since(start).Seconds())
		log.Info().Int("shards", idx.NumShards()).Ints("shard_sizes", sharding.Sizes(shards)).Dur("build", time.Since(start)).Msg("Built index")

		cfg := &configuration{
			ds:      ds,
			metric:  m,
			train:   train,
			queries: queries,
			shards:  shards,
			index:   idx,
		}
		for _, k := range h.plan.KValues {
			if k > train.Cardinality() {
				log.Warn().Int("k", k).Msg("Skipping k larger than the dataset")
				continue
			}
			if err := h.runK(ctx, log, cfg, k, summary); err != nil {
				return err
			}
		}
	}
	return nil
}

// runK runs every knn sweep and then every rnn sweep at one k. The rnn
// radii are the output of the Linear knn sweep at the same k.
//
//nolint:gocritic // Logger passed by value
func (h *Harness) runK(ctx context.Context, log zerolog.Logger, cfg *configuration, k int, summary *Summary) error {
	opts := measure.Options{Dataset: cfg.ds.Name, Recall: h.plan.Recall}
	var radii []float64

	for _, alg := range h.plan.KnnAlgorithms {
		log.Info().Int("shards", len(cfg.shards)).Int("k", k).Str("algorithm", string(alg)).Msg("Running knn sweep")

		res, err := h.driver.Knn(ctx, cfg.index, cfg.queries.Vectors, k, alg, opts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Error().Err(err).Int("k", k).Str("algorithm", string(alg)).Msg("Knn sweep failed")
			h.fail(summary, cfg.ds, "knn", err)
			continue
		}
		if alg == engine.Linear {
			radii = res.Radii
		}
		if err := h.write(log, cfg, k, alg, engine.KindKnn, res.Elapsed, res.Recalls, summary); err != nil {
			return err
		}
	}

	for _, alg := range h.plan.RnnAlgorithms {
		if !measure.Applicable(engine.KindRnn, alg) {
			log.Debug().Str("algorithm", string(alg)).Msg("Algorithm excluded from rnn sweeps")
			continue
		}
		if radii == nil {
			err := bencherr.NewSearchError("rnn_sweep", "no radii: the linear knn sweep did not complete").
				WithContext("k", k)
			h.fail(summary, cfg.ds, "rnn", err)
			continue
		}
		log.Info().Int("shards", len(cfg.shards)).Int("k", k).Str("algorithm", string(alg)).Msg("Running rnn sweep")

		res, err := h.driver.Rnn(ctx, cfg.index, cfg.queries.Vectors, radii, alg, opts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Error().Err(err).Int("k", k).Str("algorithm", string(alg)).Msg("Rnn sweep failed")
			h.fail(summary, cfg.ds, "rnn", err)
			continue
		}
		if err := h.write(log, cfg, k, alg, engine.KindRnn, res.Elapsed, res.Recalls, summary); err != nil {
			return err
		}
	}
	return nil
}

//nolint:gocritic // Logger passed by value
func (h *Harness) write(log zerolog.Logger, cfg *configuration, k int, alg engine.Algorithm, kind engine.Kind, elapsed, recalls []float64, summary *Summary) error {
	shape := report.Shape{
		Cardinality:    cfg.train.Cardinality(),
		Dimensionality: cfg.train.Dimensionality(),
		ShardSizes:     sharding.Sizes(cfg.shards),
	}
	r, err := report.New(cfg.id(k, alg), string(kind), shape, elapsed, recalls)
	if err != nil {
		return bencherr.WrapSerializationError(err, "write_report", "failed to assemble report")
	}
	path, err := h.reports.Write(r)
	if err != nil {
		log.Error().Err(err).Str("report", r.ID().FileName()).Msg("Failed to persist report")
		return err
	}
	metrics.ReportsWrittenTotal.WithLabelValues(cfg.ds.Name).Inc()
	summary.Reports = append(summary.Reports, path)

	ev := log.Info().
		Str("path", path).
		Float64("elapsed_mean", r.ElapsedMean).
		Float64("throughput", r.ThroughputMean)
	if r.RecallMean != nil {
		ev = ev.Float64("recall_mean", *r.RecallMean)
	}
	ev.Msg("Wrote report")
	return nil
}

func (h *Harness) fail(summary *Summary, ds DatasetSpec, stage string, err error) {
	metrics.ConfigurationFailuresTotal.WithLabelValues(ds.Name, stage).Inc()
	summary.Failures = append(summary.Failures, Failure{Dataset: ds.String(), Stage: stage, Err: err})
}
