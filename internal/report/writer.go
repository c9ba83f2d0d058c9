package report

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	bencherr "github.com/23skdu/annreports/internal/errors"
	"github.com/goccy/go-json"
	"github.com/google/renameio"
)

// Dir is an opened reports directory.
type Dir struct {
	path string
}

// Open creates path if it does not exist and returns a handle to it.
func Open(path string) (*Dir, error) {
	if path == "" {
		return nil, bencherr.NewConfigurationError("open_reports", "reports directory cannot be empty")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, bencherr.WrapPersistenceError(err, "open_reports", "failed to create reports directory").
			WithContext("path", path)
	}
	return &Dir{path: path}, nil
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// Write serializes r and atomically replaces the artifact for its ID.
// Writing the same configuration again overwrites the previous artifact.
func (d *Dir) Write(r *Report) (string, error) {
	data, err := Encode(r)
	if err != nil {
		return "", err
	}
	path := filepath.Join(d.path, r.ID().FileName())
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", bencherr.WrapPersistenceError(err, "write_report", "failed to write report").
			WithContext("path", path)
	}
	return path, nil
}

// Encode returns the JSON form of r.
func Encode(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, bencherr.WrapSerializationError(err, "encode_report", "failed to encode report").
			WithContext("report", r.ID().String())
	}
	return data, nil
}

// Load reads one report artifact.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bencherr.WrapPersistenceError(err, "load_report", "failed to read report").
			WithContext("path", path)
	}
	var r Report
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return nil, bencherr.WrapSerializationError(err, "load_report", "failed to decode report").
			WithContext("path", path)
	}
	return &r, nil
}

// LoadAll reads every report artifact in the directory, sorted by file name.
func (d *Dir) LoadAll() ([]*Report, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, bencherr.WrapPersistenceError(err, "load_reports", "failed to list reports").
			WithContext("path", d.path)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), Extension) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	reports := make([]*Report, 0, len(names))
	for _, name := range names {
		r, err := Load(filepath.Join(d.path, name))
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}
