// Package tabular implements a lazily loaded, optionally cached handle to a
// rectangular dataset backed by an in-memory table, a parquet file or a CSV file.
package tabular

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/AlejandroGNE/PowerGenome/internal/apperr"
	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

// Format is the on-disk encoding of a path-backed source.
type Format int

const (
	FormatNone Format = iota
	FormatParquet
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatParquet:
		return "parquet"
	case FormatCSV:
		return "csv"
	default:
		return "none"
	}
}

var parquetMagic = []byte("PAR1")

// Source is a handle to a table held in memory, on disk, or both.
// Loads are serialized by a per-source lock.
type Source struct {
	path   string
	format Format

	mu      sync.Mutex
	frame   *table.Frame
	columns []string
}

// Option configures a single Read call.
type Option func(*readOptions)

type readOptions struct {
	cache    bool
	cacheSet bool
}

// WithCache forces caching on or off. Without it, the full table is cached
// only when no column subset is requested.
func WithCache(cache bool) Option {
	return func(o *readOptions) {
		o.cache = cache
		o.cacheSet = true
	}
}

// New returns a source for a path, an in-memory frame, or both. When both are
// given the frame is served until Clear drops it.
func New(path string, frame *table.Frame) (*Source, error) {
	if path == "" && frame == nil {
		return nil, apperr.Config("missing either path to tabular data or an in-memory table")
	}
	s := &Source{path: path, frame: frame}
	if path != "" {
		format, err := probe(path)
		if err != nil {
			return nil, err
		}
		s.format = format
	}
	return s, nil
}

// FromFrame returns an in-memory source.
func FromFrame(frame *table.Frame) *Source {
	return &Source{frame: frame}
}

// Open returns a path-backed source.
func Open(path string) (*Source, error) {
	return New(path, nil)
}

// Path returns the backing path, or "" for in-memory sources.
func (s *Source) Path() string { return s.path }

// Format returns the backing format, FormatNone for in-memory sources.
func (s *Source) Format() Format { return s.format }

// cached reports whether a full table is held in memory.
func (s *Source) cached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame != nil
}

// probe checks the parquet magic at both ends of the file. Anything else is
// read as CSV.
func probe(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatNone, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return FormatNone, fmt.Errorf("stat %s: %w", path, err)
	}
	size := st.Size()
	if size < int64(2*len(parquetMagic)) {
		return FormatCSV, nil
	}
	head := make([]byte, len(parquetMagic))
	if _, err := f.ReadAt(head, 0); err != nil {
		return FormatNone, fmt.Errorf("read %s: %w", path, err)
	}
	tail := make([]byte, len(parquetMagic))
	if _, err := f.ReadAt(tail, size-int64(len(parquetMagic))); err != nil && err != io.EOF {
		return FormatNone, fmt.Errorf("read %s: %w", path, err)
	}
	if bytes.Equal(head, parquetMagic) && bytes.Equal(tail, parquetMagic) {
		return FormatParquet, nil
	}
	return FormatCSV, nil
}

// Columns returns the column names. For path-backed sources without a cached
// table only the parquet schema or the CSV header is read.
func (s *Source) Columns() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame != nil {
		return s.frame.Names(), nil
	}
	if s.columns != nil {
		return append([]string(nil), s.columns...), nil
	}
	var (
		cols []string
		err  error
	)
	switch s.format {
	case FormatParquet:
		cols, err = parquetColumns(s.path)
	case FormatCSV:
		cols, err = csvColumns(s.path)
	default:
		return nil, apperr.Config("tabular source has neither a path nor a table")
	}
	if err != nil {
		return nil, err
	}
	s.columns = cols
	return append([]string(nil), cols...), nil
}

// Read returns the requested columns, or every column when columns is nil.
// A cached read loads the full table once and later calls project from it.
func (s *Source) Read(columns []string, opts ...Option) (*table.Frame, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}
	cache := columns == nil
	if o.cacheSet {
		cache = o.cache
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame != nil {
		return project(s.frame, columns)
	}

	load := columns
	if cache {
		load = nil
	}
	frame, err := s.load(load)
	if err != nil {
		return nil, err
	}
	logf(s.path, "loaded %d rows x %d columns (%s, cache=%t)", frame.Len(), frame.Width(), s.format, cache)
	if cache {
		s.frame = frame
	}
	return project(frame, columns)
}

// Clear drops the cached table. In-memory sources keep theirs.
func (s *Source) Clear() {
	if s.path == "" {
		return
	}
	s.mu.Lock()
	s.frame = nil
	s.mu.Unlock()
}

func (s *Source) load(columns []string) (*table.Frame, error) {
	switch s.format {
	case FormatParquet:
		return readParquet(s.path, columns)
	case FormatCSV:
		return readCSV(s.path, columns)
	default:
		return nil, apperr.Config("tabular source has neither a path nor a table")
	}
}

func project(f *table.Frame, columns []string) (*table.Frame, error) {
	if columns == nil {
		return f, nil
	}
	return f.Select(columns...)
}

func csvColumns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	cols, err := table.ReadCSVHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cols, nil
}

func readCSV(path string, columns []string) (*table.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	frame, err := table.ReadCSV(f, columns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frame, nil
}
