// Package local reads and writes pipeline artifacts on the local filesystem.
package local

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shpitdev/destination-pipeline/pkg/destination"
)

// WriteCorpus encodes cities as a pretty-printed JSON array. A nil slice is
// written as an empty array.
func WriteCorpus(w io.Writer, cities []destination.AssembledCity) error {
	if cities == nil {
		cities = []destination.AssembledCity{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cities); err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}
	return nil
}

// ReadCorpus decodes a JSON array of assembled cities.
func ReadCorpus(r io.Reader) ([]destination.AssembledCity, error) {
	var cities []destination.AssembledCity
	dec := json.NewDecoder(r)
	if err := dec.Decode(&cities); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	if cities == nil {
		cities = []destination.AssembledCity{}
	}
	return cities, nil
}

// WriteCorpusFile writes the corpus to path, creating parent directories. The
// file is written to a temporary sibling and renamed into place.
func WriteCorpusFile(path string, cities []destination.AssembledCity) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := WriteCorpus(tmp, cities); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// ReadCorpusFile reads a corpus previously written by WriteCorpusFile.
func ReadCorpusFile(path string) ([]destination.AssembledCity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCorpus(f)
}
