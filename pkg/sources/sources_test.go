package sources

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Ramsey-B/nettle/pkg/models"
)

const listCSV = "\ufeffKind,Names,Address,Nationality,DOB,Care Of,Care Of Address\n" +
	"individual,JOHN SMITH; SMITH JOHN,1 Main St,GB,1970-01-01,,\n" +
	",,no names here,,,,\n" +
	"entity,ACME CORP,,,,\"Parent Holdings;Sister Ltd\",10 Harbour Rd\n"

func collect(t *testing.T, format string, r io.Reader, opts Options) []*models.Entity {
	t.Helper()
	src, err := Open(format, r, opts)
	require.NoError(t, err)
	entities, err := Collect(context.Background(), src)
	require.NoError(t, err)
	return entities
}

func TestCSVSource(t *testing.T) {
	alloc := models.NewIDAllocator(10)
	entities := collect(t, FormatCSV, strings.NewReader(listCSV), Options{List: "uk-hmt", Allocator: alloc})

	require.Len(t, entities, 2)

	person := entities[0]
	assert.Equal(t, int64(10), person.ID)
	assert.Equal(t, models.KindPerson, person.Kind)
	assert.Equal(t, []string{"JOHN SMITH", "SMITH JOHN"}, person.Names.Values())
	assert.Equal(t, []string{"1 Main St"}, person.Addresses.Values())
	assert.Equal(t, []string{"GB"}, person.Nationalities.Values())
	assert.Equal(t, []string{"1970-01-01"}, person.DatesOfBirth.Values())
	assert.Equal(t, []string{"uk-hmt"}, person.Sources.Values())
	assert.Empty(t, person.CompanyReferences)

	company := entities[1]
	assert.Equal(t, int64(11), company.ID, "rows without names do not consume ids")
	assert.Equal(t, models.KindCompany, company.Kind)
	refs := company.CompanyReferences.Values()
	require.Len(t, refs, 2)
	assert.Equal(t, "Parent Holdings", refs[0].Name)
	assert.Equal(t, "10 Harbour Rd", refs[0].Address)
	assert.Equal(t, "Sister Ltd", refs[1].Name)
	assert.Equal(t, "10 Harbour Rd", refs[1].Address)
}

func TestCSVSourceEncoding(t *testing.T) {
	data := []byte("name,place_of_birth\nJos\xe9 M\xfcller,K\xf6ln\n")

	entities := collect(t, FormatCSV, bytes.NewReader(data), Options{Encoding: "windows-1252"})

	require.Len(t, entities, 1)
	assert.Equal(t, []string{"José Müller"}, entities[0].Names.Values())
	assert.Equal(t, []string{"Köln"}, entities[0].PlacesOfBirth.Values())
	assert.Equal(t, models.KindUnknown, entities[0].Kind)
}

func TestCSVSourceDelimiter(t *testing.T) {
	src := NewCSVSource(Options{Allocator: models.NewIDAllocator(1)})
	src.Comma = '\t'
	require.NoError(t, src.Initialize(strings.NewReader("name\taddress\nIvan Petrov\tMoscow\n")))

	entities, err := Collect(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, []string{"Moscow"}, entities[0].Addresses.Values())
}

func TestSourceErrors(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		input    string
		opts     Options
		expected error
	}{
		{name: "unknown format", format: "pdf", expected: ErrUnknownFormat},
		{name: "missing name column", format: FormatCSV, input: "kind,address\nperson,x\n", expected: ErrMissingNameColumn},
		{name: "empty csv", format: FormatCSV, input: "", expected: ErrMissingNameColumn},
		{name: "unknown encoding", format: FormatCSV, input: "name\n", opts: Options{Encoding: "ebcdic"}, expected: ErrUnknownEncoding},
		{name: "html without header", format: FormatHTML, input: "<table></table>", expected: ErrMissingNameColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.format, strings.NewReader(tt.input), tt.opts)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestNextBeforeInitialize(t *testing.T) {
	for _, format := range Formats() {
		src, err := New(format, Options{})
		require.NoError(t, err)
		_, err = src.Next()
		assert.Error(t, err, format)
	}
}

func TestHTMLSource(t *testing.T) {
	page := `<html><body>
<p>Consolidated list</p>
<table id="list">
  <thead><tr><th>Type</th><th>Name</th><th>Citizenship</th><th>c/o</th></tr></thead>
  <tbody>
    <tr><td>Individual</td><td>  Ali   Hassan ;Aly Hassan</td><td>IR</td><td></td></tr>
    <tr><td>Entity</td><td>Orion Shipping</td><td></td><td>Orion Holdings</td></tr>
  </tbody>
</table>
<table><tr><th>name</th></tr><tr><td>ignored</td></tr></table>
</body></html>`

	entities := collect(t, FormatHTML, strings.NewReader(page), Options{List: "ofac"})

	require.Len(t, entities, 2)
	assert.Equal(t, []string{"Ali Hassan", "Aly Hassan"}, entities[0].Names.Values())
	assert.Equal(t, []string{"IR"}, entities[0].Nationalities.Values())
	assert.Equal(t, models.KindCompany, entities[1].Kind)
	_, ok := entities[1].CompanyReferences.Get("Orion Holdings")
	assert.True(t, ok)
}

func TestXLSXSource(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"kind", "name", "address"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"person", "Maria Lopez", "Madrid"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"company", "Lopez Trading SA", ""}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entities := collect(t, FormatXLSX, buf, Options{List: "eu"})

	require.Len(t, entities, 2)
	assert.Equal(t, []string{"Maria Lopez"}, entities[0].Names.Values())
	assert.Equal(t, []string{"Madrid"}, entities[0].Addresses.Values())
	assert.Equal(t, models.KindCompany, entities[1].Kind)
	assert.Empty(t, entities[1].Addresses)
}

func TestXLSXSourceRejectsGarbage(t *testing.T) {
	_, err := Open(FormatXLSX, strings.NewReader("not a workbook"), Options{})
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"lists/uk.csv":    FormatCSV,
		"lists/EU.XLSX":   FormatXLSX,
		"lists/ofac.htm":  FormatHTML,
		"lists/ofac.html": FormatHTML,
		"lists/notes.txt": FormatCSV,
	}
	for path, expected := range tests {
		format, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, expected, format, path)
	}

	_, err := FormatFromPath("list.json")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	assert.Equal(t, "uk-hmt", ListFromPath("/data/uk-hmt.csv"))
}

type stubSource struct {
	entities []*models.Entity
	err      error
}

func (s *stubSource) Initialize(io.Reader) error { return nil }

func (s *stubSource) Next() (*models.Entity, error) {
	if len(s.entities) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	e := s.entities[0]
	s.entities = s.entities[1:]
	return e, nil
}

func TestCollect(t *testing.T) {
	alloc := models.NewIDAllocator(1)

	t.Run("propagates source errors", func(t *testing.T) {
		boom := errors.New("boom")
		entities, err := Collect(context.Background(), &stubSource{entities: []*models.Entity{alloc.NewEntity(models.KindPerson)}, err: boom})
		assert.ErrorIs(t, err, boom)
		assert.Len(t, entities, 1)
	})

	t.Run("stops when cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Collect(ctx, &stubSource{entities: []*models.Entity{alloc.NewEntity(models.KindPerson)}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
