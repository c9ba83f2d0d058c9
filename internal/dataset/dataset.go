// Package dataset loads the train and query vector sets of a named
// benchmark dataset.
package dataset

import (
	"context"
	"errors"
	"fmt"

	bencherr "github.com/23skdu/annreports/internal/errors"
)

// ErrUnrecognized is returned by a Reader that does not serve the requested
// name, letting a Chain fall through to the next reader.
var ErrUnrecognized = errors.New("dataset not recognized")

// VectorSet is an ordered, immutable collection of equal-length vectors.
type VectorSet struct {
	Name    string
	Vectors [][]float32
}

// Cardinality returns the number of vectors.
func (v VectorSet) Cardinality() int {
	return len(v.Vectors)
}

// Dimensionality returns the vector length, or 0 for an empty set.
func (v VectorSet) Dimensionality() int {
	if len(v.Vectors) == 0 {
		return 0
	}
	return len(v.Vectors[0])
}

// Validate rejects empty and ragged sets.
func (v VectorSet) Validate() error {
	if len(v.Vectors) == 0 {
		return bencherr.NewDatasetError("validate", fmt.Sprintf("%s: vector set is empty", v.Name))
	}
	dims := v.Dimensionality()
	if dims == 0 {
		return bencherr.NewDatasetError("validate", fmt.Sprintf("%s: vectors have no dimensions", v.Name))
	}
	for i, vec := range v.Vectors {
		if len(vec) != dims {
			return bencherr.NewDatasetError("validate",
				fmt.Sprintf("%s: vector %d has %d dimensions, expected %d", v.Name, i, len(vec), dims))
		}
	}
	return nil
}

// Reader loads a dataset by name.
type Reader interface {
	Read(ctx context.Context, name string) (train, queries VectorSet, err error)
}

// Chain asks each reader in turn and returns the first answer that is not
// ErrUnrecognized.
type Chain []Reader

// Read implements Reader.
func (c Chain) Read(ctx context.Context, name string) (VectorSet, VectorSet, error) {
	for _, r := range c {
		train, queries, err := r.Read(ctx, name)
		if errors.Is(err, ErrUnrecognized) {
			continue
		}
		return train, queries, err
	}
	return VectorSet{}, VectorSet{}, unrecognized(name)
}

func unrecognized(name string) error {
	return bencherr.WrapDatasetError(ErrUnrecognized, "read_dataset", fmt.Sprintf("no reader serves %q", name)).
		WithContext("dataset", name)
}

// checkPair validates a loaded pair and that both halves share a
// dimensionality.
func checkPair(name string, train, queries VectorSet) error {
	if err := train.Validate(); err != nil {
		return err
	}
	if err := queries.Validate(); err != nil {
		return err
	}
	if train.Dimensionality() != queries.Dimensionality() {
		return bencherr.NewDatasetError("read_dataset",
			fmt.Sprintf("%s: train has %d dimensions but queries have %d", name, train.Dimensionality(), queries.Dimensionality()))
	}
	return nil
}
