package sources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/Ramsey-B/nettle/pkg/models"
)

// CSVSource streams records from a delimited file with a header row
type CSVSource struct {
	opts   Options
	reader *csv.Reader
	mapper *rowMapper
	// Comma overrides the field delimiter. Zero means ','.
	Comma rune
}

// NewCSVSource creates a CSV source
func NewCSVSource(opts Options) *CSVSource {
	return &CSVSource{opts: opts}
}

// Initialize reads the header row
func (s *CSVSource) Initialize(r io.Reader) error {
	decoded, err := decode(r, s.opts.Encoding)
	if err != nil {
		return err
	}

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	if s.Comma != 0 {
		reader.Comma = s.Comma
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: empty document", ErrMissingNameColumn)
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	mapper, err := newRowMapper(s.opts, header)
	if err != nil {
		return err
	}
	s.reader = reader
	s.mapper = mapper
	return nil
}

// Next returns the next record with at least one name
func (s *CSVSource) Next() (*models.Entity, error) {
	if s.reader == nil {
		return nil, errors.New("csv source not initialized")
	}
	for {
		row, err := s.reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		if e := s.mapper.entity(row); e != nil {
			return e, nil
		}
	}
}
