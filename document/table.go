package document

import (
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/use-agent/gleaner/models"
	"github.com/use-agent/gleaner/selector"
)

// Row is one extracted table row: an ordered column-name → cell-value
// mapping. Column order follows the document; a Row is immutable once
// produced.
type Row struct {
	cols  []string
	cells map[string]string
}

// Columns returns the column names in document order.
func (r Row) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

// Get returns the cell value for the named column.
func (r Row) Get(name string) (string, bool) {
	v, ok := r.cells[name]
	return v, ok
}

// Cells returns the cell values in column order.
func (r Row) Cells() []string {
	out := make([]string, len(r.cols))
	for i, c := range r.cols {
		out[i] = r.cells[c]
	}
	return out
}

// NewRow builds a Row from parallel column-name and cell-value slices.
// Column names go through the same repair as extracted headers, so
// duplicates and blanks are made unique here too.
func NewRow(cols, cells []string) Row {
	return newRow(repairColumns(cols), cells)
}

// tableOptions carries the optional knobs for ExtractTable.
type tableOptions struct {
	skipRows int
}

// TableOption configures ExtractTable.
type TableOption func(*tableOptions)

// SkipRows drops the first k rows of the table before reading the header.
// The header is then taken from row k and data rows follow it. This covers
// tables that lead with decorative or repeated-header rows.
func SkipRows(k int) TableOption {
	return func(o *tableOptions) { o.skipRows = k }
}

var rowSelector = selector.MustNew("tr")

// ExtractTable locates the first table-like node matching sel and reads it
// into Rows. Header cells become column names; duplicate names are repaired
// deterministically by suffixing "_2", "_3", … in order of appearance, and
// empty names get a positional "column_N" name. Data rows are read
// positionally: short rows leave trailing cells empty, long rows get
// synthesized trailing column names.
//
// It fails with TABLE_NOT_FOUND when sel matches no table.
func (d Document) ExtractTable(sel selector.Selector, opts ...TableOption) ([]Row, error) {
	var o tableOptions
	for _, opt := range opts {
		opt(&o)
	}

	table := d.findTable(sel)
	if table == nil {
		return nil, models.NewScrapeError(
			models.ErrCodeTableNotFound,
			fmt.Sprintf("selector %q matches no table", sel.CSS()),
			nil,
		)
	}

	trs := rowSelector.MatchAll(table)
	if o.skipRows > 0 {
		if o.skipRows >= len(trs) {
			trs = nil
		} else {
			trs = trs[o.skipRows:]
		}
	}
	if len(trs) == 0 {
		return []Row{}, nil
	}

	cols := repairColumns(cellTexts(trs[0]))
	rows := make([]Row, 0, len(trs)-1)
	for _, tr := range trs[1:] {
		rows = append(rows, newRow(cols, cellTexts(tr)))
	}
	return rows, nil
}

// findTable resolves sel to a <table> element: a direct match wins, else
// the first table nested under a match.
func (d Document) findTable(sel selector.Selector) *html.Node {
	for _, n := range d.Query(sel) {
		if isTable(n) {
			return n
		}
		if t, ok := nestedTableSelector.MatchFirst(n); ok {
			return t
		}
	}
	return nil
}

var nestedTableSelector = selector.MustNew("table")

func isTable(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Table
}

var cellSelector = selector.MustNew("th, td")

// cellTexts returns the normalized text of each cell in one <tr>.
func cellTexts(tr *html.Node) []string {
	cells := cellSelector.MatchAll(tr)
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = selector.Text(c)
	}
	return out
}

// repairColumns makes header names unique and non-empty. The first
// occurrence keeps its name; repeats become "name_2", "name_3", … and
// blank headers become "column_N" by position (1-based). A suffixed
// candidate is checked against names already emitted, so headers like
// [A, A_2, A] repair to [A, A_2, A_3] rather than reintroducing a
// duplicate.
func repairColumns(names []string) []string {
	counts := make(map[string]int, len(names))
	used := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		counts[name]++
		candidate := name
		if counts[name] > 1 {
			candidate = fmt.Sprintf("%s_%d", name, counts[name])
		}
		for used[candidate] {
			counts[name]++
			candidate = fmt.Sprintf("%s_%d", name, counts[name])
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

// newRow pairs cell values with column names positionally. Extra cells
// beyond the header get synthesized positional names so no data is dropped.
func newRow(cols []string, cells []string) Row {
	rowCols := cols
	if len(cells) > len(cols) {
		rowCols = make([]string, len(cells))
		copy(rowCols, cols)
		for i := len(cols); i < len(cells); i++ {
			rowCols[i] = fmt.Sprintf("column_%d", i+1)
		}
	}
	values := make(map[string]string, len(rowCols))
	for i, c := range rowCols {
		if i < len(cells) {
			values[c] = cells[i]
		} else {
			values[c] = ""
		}
	}
	return Row{cols: rowCols, cells: values}
}
