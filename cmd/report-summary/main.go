// Command report-summary prints one line per report found in a reports
// directory and optionally exports the same rows as a Parquet file.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/23skdu/annreports/internal/report"
	"github.com/google/renameio"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("report-summary", flag.ContinueOnError)
	flags.SetOutput(stderr)
	dir := flags.String("reports", "reports", "Directory holding JSON reports")
	parquetPath := flags.String("parquet", "", "Also write the summary rows to this Parquet file")
	datasetFilter := flags.String("dataset", "", "Only include reports whose dataset name contains this string")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if _, err := os.Stat(*dir); err != nil {
		fmt.Fprintf(stderr, "report-summary: %v\n", err)
		return 1
	}
	reports, err := report.Open(*dir)
	if err != nil {
		fmt.Fprintf(stderr, "report-summary: %v\n", err)
		return 1
	}
	all, err := reports.LoadAll()
	if err != nil {
		fmt.Fprintf(stderr, "report-summary: %v\n", err)
		return 1
	}

	selected := all[:0]
	for _, r := range all {
		if strings.Contains(r.DataName, *datasetFilter) {
			selected = append(selected, r)
		}
	}

	if err := report.WriteTable(stdout, selected); err != nil {
		fmt.Fprintf(stderr, "report-summary: %v\n", err)
		return 1
	}
	if *parquetPath != "" {
		if err := writeParquet(*parquetPath, selected); err != nil {
			fmt.Fprintf(stderr, "report-summary: %v\n", err)
			return 1
		}
	}
	return 0
}

func writeParquet(path string, reports []*report.Report) error {
	f, err := renameio.TempFile("", path)
	if err != nil {
		return err
	}
	defer f.Cleanup() //nolint:errcheck // no-op after a successful replace

	if err := report.WriteParquet(f, reports); err != nil {
		return err
	}
	return f.CloseAtomicallyReplace()
}
