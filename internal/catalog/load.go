package catalog

import (
	"fmt"

	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/afero"
)

// Source is the parsed content of one input file.
type Source struct {
	Path   string
	Size   int64
	Prints []Print
}

// LoadFile parses one catalog file from fsys.
func LoadFile(fsys afero.Fs, path string) (*Source, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat catalog: %w", err)
	}

	prints, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Source{Path: path, Size: info.Size(), Prints: prints}, nil
}

// LoadFiles parses several files concurrently. Results keep the order of paths.
func LoadFiles(fsys afero.Fs, paths []string) ([]*Source, error) {
	return iter.MapErr(paths, func(path *string) (*Source, error) {
		return LoadFile(fsys, *path)
	})
}
