package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	bencherr "github.com/23skdu/annreports/internal/errors"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// File extensions understood by FileReader, in probe order.
const (
	ExtArrow   = ".arrow"
	ExtParquet = ".parquet"
)

// FileReader loads {Dir}/{name}-train.{ext} and {Dir}/{name}-test.{ext},
// where ext is Arrow IPC stream or Parquet. Both files carry the vectors in a
// column named "vector".
type FileReader struct {
	Dir   string
	Alloc memory.Allocator
}

// Read implements Reader.
func (r FileReader) Read(ctx context.Context, name string) (VectorSet, VectorSet, error) {
	for _, ext := range []string{ExtArrow, ExtParquet} {
		trainPath := filepath.Join(r.Dir, name+"-train"+ext)
		if _, err := os.Stat(trainPath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return VectorSet{}, VectorSet{}, bencherr.WrapDatasetError(err, "read_dataset", "cannot stat train file").
				WithContext("path", trainPath)
		}
		testPath := filepath.Join(r.Dir, name+"-test"+ext)

		train, err := r.load(ctx, trainPath, ext)
		if err != nil {
			return VectorSet{}, VectorSet{}, err
		}
		queries, err := r.load(ctx, testPath, ext)
		if err != nil {
			return VectorSet{}, VectorSet{}, err
		}
		if err := checkPair(name, train, queries); err != nil {
			return VectorSet{}, VectorSet{}, err
		}
		return train, queries, nil
	}
	return VectorSet{}, VectorSet{}, ErrUnrecognized
}

func (r FileReader) load(ctx context.Context, path, ext string) (VectorSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return VectorSet{}, bencherr.WrapDatasetError(err, "read_dataset", "cannot open dataset file").
			WithContext("path", path)
	}
	defer func() { _ = f.Close() }()

	var vectors [][]float32
	switch ext {
	case ExtArrow:
		alloc := r.Alloc
		if alloc == nil {
			alloc = memory.NewGoAllocator()
		}
		vectors, err = readArrow(ctx, f, alloc)
	case ExtParquet:
		vectors, err = readParquet(f)
	default:
		err = fmt.Errorf("unsupported extension %q", ext)
	}
	if err != nil {
		return VectorSet{}, bencherr.WrapDatasetError(err, "read_dataset", "cannot decode dataset file").
			WithContext("path", path)
	}
	return VectorSet{Name: filepath.Base(path), Vectors: vectors}, nil
}
