package table

import (
	"fmt"
	"strings"
)

// Table is a parsed table.
// It is not safe for concurrent use; a table belongs to the widget editing it.
type Table struct {
	dialect Dialect

	// source holds the parsed lines without terminators.
	source []string

	// header is nil for a headerless table.
	header []string
	rows   [][]string
	align  []Alignment

	modified bool
}

// Parse reads text as a table of the given dialect.
// One trailing line terminator is ignored.
func Parse(text string, d Dialect) (*Table, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, ErrEmpty
	}

	var (
		t   *Table
		err error
	)
	switch d {
	case DialectSimple:
		t, err = parseSimple(lines)
	case DialectGrid:
		t, err = parseGrid(lines)
	case DialectPipe:
		t, err = parsePipe(lines)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownDialect, d)
	}
	if err != nil {
		return nil, err
	}

	t.dialect = d
	t.source = lines
	t.normalize()
	return t, nil
}

// splitLines splits text into lines, dropping one trailing terminator.
func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// normalize pads every row to the column count.
func (t *Table) normalize() {
	n := len(t.align)
	if len(t.header) > n {
		n = len(t.header)
	}
	for _, r := range t.rows {
		if len(r) > n {
			n = len(r)
		}
	}

	for len(t.align) < n {
		t.align = append(t.align, AlignDefault)
	}
	if t.header != nil {
		t.header = pad(t.header, n)
	}
	for i := range t.rows {
		t.rows[i] = pad(t.rows[i], n)
	}
}

func pad(cells []string, n int) []string {
	for len(cells) < n {
		cells = append(cells, "")
	}
	return cells
}

// Dialect returns the table dialect.
func (t *Table) Dialect() Dialect {
	return t.dialect
}

// Headerless returns true if the table has no header row.
func (t *Table) Headerless() bool {
	return t.header == nil
}

// Header returns a copy of the header cells, or nil for a headerless table.
func (t *Table) Header() []string {
	if t.header == nil {
		return nil
	}
	return append([]string(nil), t.header...)
}

// Rows returns the number of body rows.
func (t *Table) Rows() int {
	return len(t.rows)
}

// Columns returns the number of columns.
func (t *Table) Columns() int {
	return len(t.align)
}

// Align returns the alignment of column c.
func (t *Table) Align(c int) Alignment {
	if c < 0 || c >= len(t.align) {
		return AlignDefault
	}
	return t.align[c]
}

// Cell returns the body cell at (row, col).
func (t *Table) Cell(row, col int) (string, bool) {
	if row < 0 || row >= len(t.rows) || col < 0 || col >= len(t.align) {
		return "", false
	}
	return t.rows[row][col], true
}

// SetCell replaces a body cell.
func (t *Table) SetCell(row, col int, value string) error {
	if row < 0 || row >= len(t.rows) || col < 0 || col >= len(t.align) {
		return fmt.Errorf("%w: (%d, %d)", ErrCellOutOfRange, row, col)
	}
	t.set(&t.rows[row][col], value)
	return nil
}

// HeaderCell returns the header cell in column col.
func (t *Table) HeaderCell(col int) (string, bool) {
	if t.header == nil || col < 0 || col >= len(t.header) {
		return "", false
	}
	return t.header[col], true
}

// SetHeaderCell replaces a header cell.
func (t *Table) SetHeaderCell(col int, value string) error {
	if t.header == nil {
		return ErrNoHeader
	}
	if col < 0 || col >= len(t.header) {
		return fmt.Errorf("%w: header column %d", ErrCellOutOfRange, col)
	}
	t.set(&t.header[col], value)
	return nil
}

func (t *Table) set(cell *string, value string) {
	value = strings.ReplaceAll(value, "\n", " ")
	if *cell == value {
		return
	}
	*cell = value
	t.modified = true
}

// AppendRow adds an empty body row and returns its index.
func (t *Table) AppendRow() int {
	t.rows = append(t.rows, make([]string, len(t.align)))
	t.modified = true
	return len(t.rows) - 1
}

// Modified returns true once any cell or row changed since parsing.
func (t *Table) Modified() bool {
	return t.modified
}

// MarkModified makes Markdown regenerate the table even if no cell changed.
func (t *Table) MarkModified() {
	t.modified = true
}

// Markdown returns the table text in its dialect, ending in a newline.
// An unmodified table returns its source lines unchanged.
func (t *Table) Markdown() string {
	if !t.modified {
		return strings.Join(t.source, "\n") + "\n"
	}
	return t.Format()
}

// Format returns the table regenerated in its dialect with aligned columns,
// ending in a newline.
func (t *Table) Format() string {
	var lines []string
	switch t.dialect {
	case DialectGrid:
		lines = t.gridLines()
	case DialectPipe:
		lines = t.pipeLines()
	default:
		lines = t.simpleLines()
	}
	return strings.Join(lines, "\n") + "\n"
}

// String returns a short description of the table.
func (t *Table) String() string {
	return fmt.Sprintf("%s table %dx%d", t.dialect, len(t.rows), len(t.align))
}
