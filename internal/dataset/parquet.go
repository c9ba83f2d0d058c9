package dataset

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// vectorRow is the row layout of Parquet dataset files.
type vectorRow struct {
	Vector []float32 `parquet:"vector"`
}

func readParquet(f *os.File) ([][]float32, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	rows, err := parquet.Read[vectorRow](f, info.Size())
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(rows))
	for i, row := range rows {
		out[i] = row.Vector
	}
	return out, nil
}

// WriteParquet encodes vectors as a Parquet file with a repeated float
// "vector" column.
func WriteParquet(w io.Writer, vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("no vectors to write")
	}
	rows := make([]vectorRow, len(vectors))
	for i, v := range vectors {
		rows[i] = vectorRow{Vector: v}
	}

	pw := parquet.NewGenericWriter[vectorRow](w, parquet.Compression(&parquet.Zstd))
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return err
	}
	return pw.Close()
}
