package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	bencherr "github.com/23skdu/annreports/internal/errors"
	"github.com/parquet-go/parquet-go"
)

// SummaryRow is the flattened, per-report row used for later analysis.
type SummaryRow struct {
	DataName       string  `parquet:"data_name"`
	MetricName     string  `parquet:"metric_name"`
	Cardinality    int64   `parquet:"cardinality"`
	Dimensionality int64   `parquet:"dimensionality"`
	NumShards      int64   `parquet:"num_shards"`
	NumQueries     int64   `parquet:"num_queries"`
	K              int64   `parquet:"k"`
	Kind           string  `parquet:"kind"`
	Algorithm      string  `parquet:"algorithm"`
	ElapsedMean    float64 `parquet:"elapsed_mean"`
	ElapsedStd     float64 `parquet:"elapsed_std"`
	ElapsedP50     float64 `parquet:"elapsed_p50"`
	ElapsedP99     float64 `parquet:"elapsed_p99"`
	ThroughputMean float64 `parquet:"throughput_mean"`
	ThroughputStd  float64 `parquet:"throughput_std"`
	HasRecall      bool    `parquet:"has_recall"`
	RecallMean     float64 `parquet:"recall_mean"`
}

// Summarize flattens reports into summary rows, preserving order.
func Summarize(reports []*Report) []SummaryRow {
	rows := make([]SummaryRow, len(reports))
	for i, r := range reports {
		rows[i] = SummaryRow{
			DataName:       r.DataName,
			MetricName:     r.MetricName,
			Cardinality:    int64(r.Cardinality),
			Dimensionality: int64(r.Dimensionality),
			NumShards:      int64(r.NumShards()),
			NumQueries:     int64(r.NumQueries),
			K:              int64(r.K),
			Kind:           r.Kind,
			Algorithm:      r.Algorithm,
			ElapsedMean:    r.ElapsedMean,
			ElapsedStd:     r.ElapsedStd,
			ElapsedP50:     r.ElapsedP50,
			ElapsedP99:     r.ElapsedP99,
			ThroughputMean: r.ThroughputMean,
			ThroughputStd:  r.ThroughputStd,
		}
		if r.RecallMean != nil {
			rows[i].HasRecall = true
			rows[i].RecallMean = *r.RecallMean
		}
	}
	return rows
}

// WriteParquet writes the summary rows of reports as a single Parquet file.
func WriteParquet(w io.Writer, reports []*Report) error {
	pw := parquet.NewGenericWriter[SummaryRow](w, parquet.Compression(&parquet.Zstd))
	if _, err := pw.Write(Summarize(reports)); err != nil {
		_ = pw.Close()
		return bencherr.WrapSerializationError(err, "write_summary", "failed to write parquet rows")
	}
	if err := pw.Close(); err != nil {
		return bencherr.WrapSerializationError(err, "write_summary", "failed to close parquet writer")
	}
	return nil
}

// WriteTable prints one aligned line per report.
func WriteTable(w io.Writer, reports []*Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATASET\tMETRIC\tSHARDS\tK\tKIND\tALGORITHM\tMEAN(s)\tSTD(s)\tP99(s)\tQPS\tRECALL")
	for _, row := range Summarize(reports) {
		recall := "-"
		if row.HasRecall {
			recall = fmt.Sprintf("%.4f", row.RecallMean)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%.3e\t%.3e\t%.3e\t%.1f\t%s\n",
			row.DataName, row.MetricName, row.NumShards, row.K, row.Kind, row.Algorithm,
			row.ElapsedMean, row.ElapsedStd, row.ElapsedP99, row.ThroughputMean, recall)
	}
	return tw.Flush()
}
