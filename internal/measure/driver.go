// Package measure times searches over a query set.
//
// A sweep fans queries out to a fixed-size worker pool and writes each
// measurement into the slot of its query, so every output sequence is in
// query order whatever the scheduling. The timer wraps exactly one search
// call. Ground-truth searches for recall run in their own pass, never
// concurrently with timed searches.
package measure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/23skdu/annreports/internal/engine"
	bencherr "github.com/23skdu/annreports/internal/errors"
	"github.com/23skdu/annreports/internal/hits"
	"github.com/23skdu/annreports/internal/metrics"
	"github.com/23skdu/annreports/internal/recall"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Driver runs sweeps. The zero value uses GOMAXPROCS workers and a disabled
// logger.
type Driver struct {
	Workers int
	Logger  zerolog.Logger
}

// NewDriver returns a Driver with the given pool size; workers <= 0 selects
// GOMAXPROCS.
//
//nolint:gocritic // Logger passed by value for constructor simplicity
func NewDriver(workers int, logger zerolog.Logger) *Driver {
	return &Driver{Workers: workers, Logger: logger}
}

// Options tunes a single sweep.
type Options struct {
	// Dataset labels the sweep's metrics.
	Dataset string
	// Recall requests per-query recall against the Linear algorithm on the
	// same index.
	Recall bool
}

// KnnResult holds one knn sweep's measurements, index-aligned with queries.
type KnnResult struct {
	Elapsed []float64
	// Radii is the largest distance among each query's hits; it is the radius
	// input of an rnn sweep at the same k.
	Radii   []float64
	Recalls []float64
}

// RnnResult holds one rnn sweep's measurements, index-aligned with queries.
type RnnResult struct {
	Elapsed []float64
	Recalls []float64
}

// Applicable reports whether alg takes part in a sweep of the given kind.
// The Linear baseline is excluded from rnn sweeps: radii come from the
// linear knn sweep, so a linear rnn pass measures nothing new.
func Applicable(kind engine.Kind, alg engine.Algorithm) bool {
	if !engine.Supports(kind, alg) {
		return false
	}
	return !(kind == engine.KindRnn && alg == engine.Linear)
}

// RecallApplies reports whether recall is computed for alg when requested.
// The Linear baseline is the ground truth and is never scored against itself.
func RecallApplies(alg engine.Algorithm) bool {
	return alg != engine.Linear
}

// Knn times idx.Knn for every query. When recall is requested the Linear
// ground truth is computed in a separate untimed pass that has finished
// before the first timed search starts.
func (d *Driver) Knn(ctx context.Context, idx engine.Index, queries [][]float32, k int, alg engine.Algorithm, opts Options) (*KnnResult, error) {
	if !engine.Supports(engine.KindKnn, alg) {
		return nil, bencherr.NewValidationError("knn_sweep", fmt.Sprintf("algorithm %q is not a knn algorithm", alg))
	}

	var truth []hits.HitSet
	if opts.Recall && RecallApplies(alg) {
		var err error
		truth, err = d.groundTruth(ctx, len(queries), func(i int) (hits.HitSet, error) {
			return idx.Knn(queries[i], k, engine.Linear)
		})
		if err != nil {
			return nil, err
		}
	}

	out := &KnnResult{
		Elapsed: make([]float64, len(queries)),
		Radii:   make([]float64, len(queries)),
	}
	var found []hits.HitSet
	if truth != nil {
		found = make([]hits.HitSet, len(queries))
	}

	latency := metrics.QueryLatencySeconds.WithLabelValues(opts.Dataset, string(engine.KindKnn), string(alg))

	err := d.sweep(ctx, engine.KindKnn, alg, len(queries), func(i int) error {
		start := time.Now()
		res, err := idx.Knn(queries[i], k, alg)
		elapsed := time.Since(start)

		if err != nil {
			return bencherr.WrapSearchError(err, "knn_sweep", "search failed").
				WithContext("query", i).
				WithContext("k", k)
		}
		out.Elapsed[i] = elapsed.Seconds()
		out.Radii[i] = res.MaxDistance()
		latency.Observe(out.Elapsed[i])
		if found != nil {
			found[i] = res
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if truth != nil {
		out.Recalls = scoreRecall(opts.Dataset, engine.KindKnn, alg, found, truth, func(approx, exact hits.HitSet) float64 {
			return recall.Recall(approx, exact, k)
		})
	}
	return out, nil
}

// Rnn times idx.Rnn for every query using radii[i] as the radius of query i.
// radii normally comes from KnnResult.Radii of the linear sweep at the same k.
// Ground truth, when requested, is computed before the timed pass as in Knn.
func (d *Driver) Rnn(ctx context.Context, idx engine.Index, queries [][]float32, radii []float64, alg engine.Algorithm, opts Options) (*RnnResult, error) {
	if !Applicable(engine.KindRnn, alg) {
		return nil, bencherr.NewValidationError("rnn_sweep", fmt.Sprintf("algorithm %q is not applicable to rnn sweeps", alg))
	}
	if len(radii) != len(queries) {
		return nil, bencherr.NewValidationError("rnn_sweep",
			fmt.Sprintf("got %d radii for %d queries", len(radii), len(queries)))
	}

	var truth []hits.HitSet
	if opts.Recall && RecallApplies(alg) {
		var err error
		truth, err = d.groundTruth(ctx, len(queries), func(i int) (hits.HitSet, error) {
			return idx.Rnn(queries[i], radii[i], engine.Linear)
		})
		if err != nil {
			return nil, err
		}
	}

	out := &RnnResult{Elapsed: make([]float64, len(queries))}
	var found []hits.HitSet
	if truth != nil {
		found = make([]hits.HitSet, len(queries))
	}

	latency := metrics.QueryLatencySeconds.WithLabelValues(opts.Dataset, string(engine.KindRnn), string(alg))

	err := d.sweep(ctx, engine.KindRnn, alg, len(queries), func(i int) error {
		radius := radii[i]

		start := time.Now()
		res, err := idx.Rnn(queries[i], radius, alg)
		elapsed := time.Since(start)

		if err != nil {
			return bencherr.WrapSearchError(err, "rnn_sweep", "search failed").
				WithContext("query", i).
				WithContext("radius", radius)
		}
		out.Elapsed[i] = elapsed.Seconds()
		latency.Observe(out.Elapsed[i])
		if found != nil {
			found[i] = res
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if truth != nil {
		out.Recalls = scoreRecall(opts.Dataset, engine.KindRnn, alg, found, truth, recall.Range)
	}
	return out, nil
}

// groundTruth runs the untimed Linear searches for a sweep.
func (d *Driver) groundTruth(ctx context.Context, n int, search func(i int) (hits.HitSet, error)) ([]hits.HitSet, error) {
	truth := make([]hits.HitSet, n)
	err := d.Map(ctx, n, func(i int) error {
		exact, err := search(i)
		if err != nil {
			return bencherr.WrapSearchError(err, "ground_truth", "linear search failed").
				WithContext("query", i)
		}
		truth[i] = exact
		return nil
	})
	if err != nil {
		return nil, err
	}
	return truth, nil
}

func scoreRecall(dataset string, kind engine.Kind, alg engine.Algorithm, found, truth []hits.HitSet, score func(approx, exact hits.HitSet) float64) []float64 {
	observer := metrics.QueryRecall.WithLabelValues(dataset, string(kind), string(alg))
	out := make([]float64, len(found))
	for i := range found {
		out[i] = score(found[i], truth[i])
		observer.Observe(out[i])
	}
	return out
}

func (d *Driver) sweep(ctx context.Context, kind engine.Kind, alg engine.Algorithm, n int, fn func(i int) error) error {
	start := time.Now()
	err := d.Map(ctx, n, fn)
	duration := time.Since(start)

	if err != nil {
		metrics.SweepErrorsTotal.WithLabelValues(string(kind), string(alg)).Inc()
		return err
	}
	metrics.SweepDurationSeconds.WithLabelValues(string(kind), string(alg)).Observe(duration.Seconds())
	d.Logger.Debug().
		Str("kind", string(kind)).
		Str("algorithm", string(alg)).
		Int("queries", n).
		Dur("duration", duration).
		Msg("Sweep complete")
	return nil
}

// Map runs fn(0) ... fn(n-1) on the worker pool and returns the first error.
// fn must only write state owned by its index. Context cancellation stops
// dispatch of further indices.
func (d *Driver) Map(ctx context.Context, n int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers())

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (d *Driver) workers() int {
	if d.Workers > 0 {
		return d.Workers
	}
	return runtime.GOMAXPROCS(0)
}
