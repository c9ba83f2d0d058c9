package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/23skdu/annreports/internal/dataset"
	"github.com/23skdu/annreports/internal/engine"
	bencherr "github.com/23skdu/annreports/internal/errors"
	"github.com/23skdu/annreports/internal/logging"
	"github.com/23skdu/annreports/internal/measure"
	"github.com/23skdu/annreports/internal/metrics"
	"github.com/23skdu/annreports/internal/report"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan() Plan {
	p := DefaultPlan()
	p.MaxShards = 2
	p.KValues = []int{1, 5}
	p.Seed = 7
	return p
}

func newHarness(t *testing.T, dir string, plan Plan) *Harness {
	t.Helper()
	reports, err := report.Open(dir)
	require.NoError(t, err)
	logger := logging.DiscardLogger()
	return New(dataset.Synthetic{Seed: 3, QueryFraction: 8}, reports, measure.NewDriver(2, logger), logger, plan)
}

func jsonFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*"+report.Extension))
	require.NoError(t, err)
	return files
}

// reportsPerK is the number of sweeps at one (shards, k): every knn
// algorithm plus every rnn algorithm except the linear baseline.
func reportsPerK() int {
	return len(engine.KnnAlgorithms()) + len(engine.RnnAlgorithms()) - 1
}

func TestRun_OneReportPerConfiguration(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, testPlan())

	summary, err := h.Run(context.Background(), []DatasetSpec{{Name: "random-64-4", Metric: "euclidean"}})
	require.NoError(t, err)
	assert.False(t, summary.Failed())
	assert.Empty(t, summary.Skipped)

	want := 2 * 2 * reportsPerK() // shard counts 1,2 × k 1,5
	assert.Len(t, summary.Reports, want)
	assert.Len(t, jsonFiles(t, dir), want)

	loaded, err := report.Load(filepath.Join(dir, report.ID{
		Dataset: "random-64-4", Metric: "euclidean", K: 5, Algorithm: "HNSW", NumShards: 2,
	}.FileName()))
	require.NoError(t, err)
	assert.Equal(t, "knn", loaded.Kind)
	assert.Equal(t, 64, loaded.Cardinality)
	assert.Equal(t, 4, loaded.Dimensionality)
	assert.Equal(t, []int{32, 32}, loaded.ShardSizes)
	assert.Equal(t, 8, loaded.NumQueries)
	assert.Len(t, loaded.Elapsed, 8)
	require.Len(t, loaded.Recalls, 8)
	require.NotNil(t, loaded.RecallMean)
	for _, r := range loaded.Recalls {
		assert.GreaterOrEqual(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)
	}
}

func TestRun_LinearBaselineHasNoRecall(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, testPlan())

	_, err := h.Run(context.Background(), []DatasetSpec{{Name: "random-64-4", Metric: "cosine"}})
	require.NoError(t, err)

	r, err := report.Load(filepath.Join(dir, report.ID{
		Dataset: "random-64-4", Metric: "cosine", K: 1, Algorithm: "Linear", NumShards: 1,
	}.FileName()))
	require.NoError(t, err)
	assert.Nil(t, r.Recalls)
	assert.Nil(t, r.RecallMean)

	_, err = os.Stat(filepath.Join(dir, report.ID{
		Dataset: "random-64-4", Metric: "cosine", K: 1, Algorithm: "HNSWExpand", NumShards: 1,
	}.FileName()))
	assert.NoError(t, err)
}

func TestRun_RerunOverwrites(t *testing.T) {
	dir := t.TempDir()
	datasets := []DatasetSpec{{Name: "random-32-3", Metric: "l2"}}

	first, err := newHarness(t, dir, testPlan()).Run(context.Background(), datasets)
	require.NoError(t, err)
	second, err := newHarness(t, dir, testPlan()).Run(context.Background(), datasets)
	require.NoError(t, err)

	assert.Equal(t, first.Reports, second.Reports)
	assert.Len(t, jsonFiles(t, dir), len(first.Reports))
}

func TestRun_UnknownMetricSkipsDataset(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, testPlan())
	skipped := metrics.DatasetsSkippedTotal.WithLabelValues("unknown_metric")
	before := testutil.ToFloat64(skipped)

	summary, err := h.Run(context.Background(), []DatasetSpec{
		{Name: "random-32-3", Metric: "hamming"},
		{Name: "random-32-3", Metric: "manhattan"},
	})
	require.NoError(t, err)
	assert.False(t, summary.Failed())
	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, "random-32-3:hamming", summary.Skipped[0].Dataset)
	assert.Equal(t, before+1, testutil.ToFloat64(skipped))
	assert.Len(t, summary.Reports, 2*2*reportsPerK())
}

func TestRun_LoadFailureContinues(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, testPlan())

	summary, err := h.Run(context.Background(), []DatasetSpec{
		{Name: "glove-25", Metric: "cosine"},
		{Name: "random-32-3", Metric: "cosine"},
	})
	require.NoError(t, err)
	require.True(t, summary.Failed())
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "load", summary.Failures[0].Stage)
	assert.ErrorIs(t, summary.Failures[0].Err, bencherr.ErrDatasetLoad)
	assert.Len(t, summary.Reports, 2*2*reportsPerK())
}

func TestRun_DegenerateShardStopsLargerCounts(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan()
	plan.MaxShards = 8
	plan.KValues = []int{1}
	h := newHarness(t, dir, plan)

	summary, err := h.Run(context.Background(), []DatasetSpec{{Name: "random-5-2", Metric: "euclidean"}})
	require.NoError(t, err)

	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "shard", summary.Failures[0].Stage)
	assert.ErrorIs(t, summary.Failures[0].Err, bencherr.ErrDegenerateShard)
	// shard counts 1, 2 and 4 succeed; 8 is degenerate
	assert.Len(t, summary.Reports, 3*reportsPerK())
}

func TestRun_SkipsKLargerThanDataset(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan()
	plan.MaxShards = 1
	plan.KValues = []int{1, 100}
	h := newHarness(t, dir, plan)

	summary, err := h.Run(context.Background(), []DatasetSpec{{Name: "random-16-2", Metric: "euclidean"}})
	require.NoError(t, err)
	assert.Len(t, summary.Reports, reportsPerK())
}

func TestRun_PersistenceFailureIsFatal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	h := newHarness(t, dir, testPlan())
	require.NoError(t, os.RemoveAll(dir))

	summary, err := h.Run(context.Background(), []DatasetSpec{
		{Name: "random-32-3", Metric: "euclidean"},
		{Name: "random-32-3", Metric: "cosine"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, bencherr.ErrPersistence)
	assert.True(t, bencherr.IsFatal(err))
	assert.Empty(t, summary.Reports)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newHarness(t, t.TempDir(), testPlan()).Run(ctx, []DatasetSpec{{Name: "random-32-3", Metric: "euclidean"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_InvalidPlan(t *testing.T) {
	plan := testPlan()
	plan.KnnAlgorithms = []engine.Algorithm{engine.HNSW}
	_, err := newHarness(t, t.TempDir(), plan).Run(context.Background(), nil)
	assert.ErrorIs(t, err, bencherr.ErrInvalidArgument)
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Plan)
		ok     bool
	}{
		{"default", func(*Plan) {}, true},
		{"zero shards", func(p *Plan) { p.MaxShards = 0 }, false},
		{"no k", func(p *Plan) { p.KValues = nil }, false},
		{"negative k", func(p *Plan) { p.KValues = []int{10, -1} }, false},
		{"rnn algorithm in knn list", func(p *Plan) { p.KnnAlgorithms = append(p.KnnAlgorithms, engine.HNSWExpand) }, false},
		{"knn algorithm in rnn list", func(p *Plan) { p.RnnAlgorithms = []engine.Algorithm{engine.HNSW} }, false},
		{"knn only without baseline", func(p *Plan) {
			p.KnnAlgorithms = []engine.Algorithm{engine.HNSW}
			p.RnnAlgorithms = nil
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPlan()
			tt.mutate(&p)
			err := p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, bencherr.ErrInvalidArgument)
			}
		})
	}
}

func TestParseDatasetSpec(t *testing.T) {
	d, err := ParseDatasetSpec(" fashion-mnist-784:euclidean ")
	require.NoError(t, err)
	assert.Equal(t, DatasetSpec{Name: "fashion-mnist-784", Metric: "euclidean"}, d)
	assert.Equal(t, "fashion-mnist-784:euclidean", d.String())

	for _, bad := range []string{"", "glove", ":cosine", "glove:"} {
		_, err := ParseDatasetSpec(bad)
		assert.ErrorIs(t, err, bencherr.ErrInvalidArgument, bad)
	}

	specs, err := ParseDatasetSpecs([]string{"a:l2", "b:cosine"})
	require.NoError(t, err)
	assert.Len(t, specs, 2)
}
