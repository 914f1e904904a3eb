package sources

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/nettle/pkg/models"
)

const (
	ColumnKind          = "kind"
	ColumnName          = "name"
	ColumnAddress       = "address"
	ColumnNationality   = "nationality"
	ColumnPlaceOfBirth  = "place_of_birth"
	ColumnDateOfBirth   = "date_of_birth"
	ColumnCareOf        = "care_of"
	ColumnCareOfAddress = "care_of_address"
)

// valueSeparator splits multi-valued cells
const valueSeparator = ";"

var columnAliases = map[string]string{
	"type":          ColumnKind,
	"entity_type":   ColumnKind,
	"names":         ColumnName,
	"aliases":       ColumnName,
	"full_name":     ColumnName,
	"addresses":     ColumnAddress,
	"nationalities": ColumnNationality,
	"citizenship":   ColumnNationality,
	"pob":           ColumnPlaceOfBirth,
	"dob":           ColumnDateOfBirth,
	"c/o":           ColumnCareOf,
	"c_o":           ColumnCareOf,
	"c/o_address":   ColumnCareOfAddress,
}

// rowMapper turns header-mapped rows into entities
type rowMapper struct {
	opts    Options
	columns map[string]int
}

func newRowMapper(opts Options, header []string) (*rowMapper, error) {
	m := &rowMapper{opts: opts, columns: make(map[string]int)}
	for i, cell := range header {
		column := columnName(cell)
		if alias, ok := columnAliases[column]; ok {
			column = alias
		}
		if _, ok := m.columns[column]; !ok {
			m.columns[column] = i
		}
	}
	if _, ok := m.columns[ColumnName]; !ok {
		return nil, fmt.Errorf("%w in header %q", ErrMissingNameColumn, header)
	}
	return m, nil
}

func columnName(cell string) string {
	cell = strings.TrimPrefix(cell, "\ufeff")
	cell = strings.ToLower(strings.TrimSpace(cell))
	return strings.Join(strings.Fields(cell), "_")
}

func (m *rowMapper) cell(row []string, column string) string {
	i, ok := m.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (m *rowMapper) values(row []string, column string) []string {
	var values []string
	for _, v := range strings.Split(m.cell(row, column), valueSeparator) {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// entity builds an entity from row, or returns nil when the row has no names
func (m *rowMapper) entity(row []string) *models.Entity {
	names := m.values(row, ColumnName)
	if len(names) == 0 {
		return nil
	}

	e := m.opts.Allocator.NewEntity(models.ParseKind(m.cell(row, ColumnKind)))
	e.Names.Add(names...)
	e.Addresses.Add(m.values(row, ColumnAddress)...)
	e.Nationalities.Add(m.values(row, ColumnNationality)...)
	e.PlacesOfBirth.Add(m.values(row, ColumnPlaceOfBirth)...)
	e.DatesOfBirth.Add(m.values(row, ColumnDateOfBirth)...)
	if m.opts.List != "" {
		e.Sources.Add(m.opts.List)
	}

	// care_of_address pairs with care_of by position; a single address applies to all
	addresses := m.values(row, ColumnCareOfAddress)
	for i, company := range m.values(row, ColumnCareOf) {
		address := ""
		switch {
		case i < len(addresses):
			address = addresses[i]
		case len(addresses) == 1:
			address = addresses[0]
		}
		e.AddCompanyReference(company, address)
	}
	return e
}

// tableSource serves entities from rows read up front
type tableSource struct {
	mapper *rowMapper
	rows   [][]string
	pos    int
}

func newTableSource(opts Options, rows [][]string) (*tableSource, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrMissingNameColumn)
	}
	mapper, err := newRowMapper(opts, rows[0])
	if err != nil {
		return nil, err
	}
	return &tableSource{mapper: mapper, rows: rows[1:]}, nil
}

func (t *tableSource) next() *models.Entity {
	for t.pos < len(t.rows) {
		row := t.rows[t.pos]
		t.pos++
		if e := t.mapper.entity(row); e != nil {
			return e
		}
	}
	return nil
}
