package sources

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Ramsey-B/nettle/pkg/models"
)

// HTMLSource scrapes records from the first table of a page. The first row
// holding cells is the header.
type HTMLSource struct {
	opts  Options
	table *tableSource
	// Selector picks the table. Defaults to "table".
	Selector string
}

// NewHTMLSource creates an HTML table source
func NewHTMLSource(opts Options) *HTMLSource {
	return &HTMLSource{opts: opts, Selector: "table"}
}

// Initialize parses the page and extracts the table rows
func (s *HTMLSource) Initialize(r io.Reader) error {
	decoded, err := decode(r, s.opts.Encoding)
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(decoded)
	if err != nil {
		return fmt.Errorf("failed to parse html: %w", err)
	}

	table := doc.Find(s.Selector).First()
	if table.Length() == 0 {
		return fmt.Errorf("no element matches %q", s.Selector)
	}

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.Join(strings.Fields(cell.Text()), " "))
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})

	t, err := newTableSource(s.opts, rows)
	if err != nil {
		return err
	}
	s.table = t
	return nil
}

func (s *HTMLSource) Next() (*models.Entity, error) {
	if s.table == nil {
		return nil, errors.New("html source not initialized")
	}
	if e := s.table.next(); e != nil {
		return e, nil
	}
	return nil, io.EOF
}
