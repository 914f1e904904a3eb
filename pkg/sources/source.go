// Package sources reads sanctions list records into entities. Every format
// maps the same header columns; see the column constants.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Ramsey-B/nettle/pkg/models"
)

var (
	// ErrUnknownFormat is returned for a format with no registered source
	ErrUnknownFormat = errors.New("unknown source format")
	// ErrMissingNameColumn is returned when a header row has no name column
	ErrMissingNameColumn = errors.New("missing name column")
	// ErrUnknownEncoding is returned for an unsupported text encoding
	ErrUnknownEncoding = errors.New("unknown text encoding")
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatHTML = "html"
)

// Source produces entities from one list document. Next returns io.EOF once
// every record has been read.
type Source interface {
	Initialize(r io.Reader) error
	Next() (*models.Entity, error)
}

// Options configures a source
type Options struct {
	// List identifies the originating list and is added to every entity's sources
	List string
	// Allocator assigns entity ids. Sources sharing an allocator never collide.
	Allocator *models.IDAllocator
	// Encoding of text formats, e.g. "windows-1251". Empty means UTF-8.
	Encoding string
}

// Factory creates a source for one format
type Factory func(opts Options) Source

var formats = map[string]Factory{
	FormatCSV:  func(opts Options) Source { return NewCSVSource(opts) },
	FormatXLSX: func(opts Options) Source { return NewXLSXSource(opts) },
	FormatHTML: func(opts Options) Source { return NewHTMLSource(opts) },
}

var extensions = map[string]string{
	".csv":  FormatCSV,
	".txt":  FormatCSV,
	".xlsx": FormatXLSX,
	".xlsm": FormatXLSX,
	".html": FormatHTML,
	".htm":  FormatHTML,
}

// Formats lists the supported format names
func Formats() []string {
	return []string{FormatCSV, FormatXLSX, FormatHTML}
}

// New creates an uninitialized source for the format
func New(format string, opts Options) (Source, error) {
	factory, ok := formats[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if opts.Allocator == nil {
		opts.Allocator = models.NewIDAllocator(1)
	}
	return factory(opts), nil
}

// Open creates a source for the format and initializes it with r
func Open(format string, r io.Reader, opts Options) (Source, error) {
	src, err := New(format, opts)
	if err != nil {
		return nil, err
	}
	if err := src.Initialize(r); err != nil {
		return nil, fmt.Errorf("failed to initialize %s source: %w", format, err)
	}
	return src, nil
}

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := extensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: extension %q", ErrUnknownFormat, ext)
	}
	return format, nil
}

// ListFromPath derives a list identifier from a file name: the base name without extension
func ListFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Collect drains src. It stops early when ctx is done.
func Collect(ctx context.Context, src Source) ([]*models.Entity, error) {
	var entities []*models.Entity
	for {
		if err := ctx.Err(); err != nil {
			return entities, err
		}
		entity, err := src.Next()
		if errors.Is(err, io.EOF) {
			return entities, nil
		}
		if err != nil {
			return entities, err
		}
		entities = append(entities, entity)
	}
}
