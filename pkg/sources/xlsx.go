package sources

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Ramsey-B/nettle/pkg/models"
)

// XLSXSource reads records from the first sheet of a workbook
type XLSXSource struct {
	opts  Options
	table *tableSource
}

// NewXLSXSource creates an XLSX source
func NewXLSXSource(opts Options) *XLSXSource {
	return &XLSXSource{opts: opts}
}

// Initialize loads the first sheet
func (s *XLSXSource) Initialize(r io.Reader) error {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return errors.New("no sheets found in workbook")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return fmt.Errorf("failed to get rows: %w", err)
	}

	table, err := newTableSource(s.opts, rows)
	if err != nil {
		return err
	}
	s.table = table
	return nil
}

func (s *XLSXSource) Next() (*models.Entity, error) {
	if s.table == nil {
		return nil, errors.New("xlsx source not initialized")
	}
	if e := s.table.next(); e != nil {
		return e, nil
	}
	return nil, io.EOF
}
