package table

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// dashRun is a run of dashes in a simple table rule, in display columns.
// end is exclusive.
type dashRun struct {
	start, end int
}

// dashRuns reads a simple table rule: dash runs separated by spaces.
func dashRuns(line string) ([]dashRun, bool) {
	line = strings.TrimRight(line, " \t")
	if strings.Count(line, "-") < 3 {
		return nil, false
	}

	var runs []dashRun
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '-':
			if i == 0 || line[i-1] != '-' {
				runs = append(runs, dashRun{start: i})
			}
			runs[len(runs)-1].end = i + 1
		case ' ':
		default:
			return nil, false
		}
	}
	return runs, true
}

// extent is the non-blank text inside a column region of a line.
type extent struct {
	text       string
	start, end int
}

// cellExtent returns the trimmed text between display columns from and to
// along with where it sits. A negative to means the end of the line.
func cellExtent(line string, from, to int) extent {
	e := extent{start: -1}
	var b strings.Builder
	col := 0
	for _, r := range line {
		w := runewidth.RuneWidth(r)
		if col >= from && (to < 0 || col < to) {
			b.WriteRune(r)
			if r != ' ' && r != '\t' {
				if e.start < 0 {
					e.start = col
				}
				e.end = col + w
			}
		}
		col += w
	}
	e.text = strings.TrimSpace(b.String())
	return e
}

// simpleCells splits a line into the column regions of runs. A column
// extends from its run to the start of the next one; the first column also
// takes anything left of its run.
func simpleCells(line string, runs []dashRun) []extent {
	cells := make([]extent, len(runs))
	for c := range runs {
		from, to := runs[c].start, -1
		if c == 0 {
			from = 0
		}
		if c+1 < len(runs) {
			to = runs[c+1].start
		}
		cells[c] = cellExtent(line, from, to)
	}
	return cells
}

// simpleAlign reads column alignment from where key text sits against the
// dashes below or above it.
func simpleAlign(key []extent, runs []dashRun) []Alignment {
	align := make([]Alignment, len(runs))
	for c, e := range key {
		if e.start < 0 {
			continue
		}
		left := e.start == runs[c].start
		right := e.end == runs[c].end
		switch {
		case left && right:
			align[c] = AlignDefault
		case left:
			align[c] = AlignLeft
		case right:
			align[c] = AlignRight
		default:
			align[c] = AlignCenter
		}
	}
	return align
}

func texts(cells []extent) []string {
	out := make([]string, len(cells))
	for i, e := range cells {
		out[i] = e.text
	}
	return out
}

// parseSimple reads a pandoc simple table, headed or headerless.
func parseSimple(lines []string) (*Table, error) {
	if len(lines) < 2 {
		return nil, syntaxErr(DialectSimple, 0, "a simple table needs at least two lines")
	}
	if runs, ok := dashRuns(lines[0]); ok {
		return parseHeaderlessSimple(lines, runs)
	}

	runs, ok := dashRuns(lines[1])
	if !ok {
		return nil, syntaxErr(DialectSimple, 1, "expected a dash line under the header")
	}

	header := simpleCells(lines[0], runs)
	t := &Table{
		header: texts(header),
		align:  simpleAlign(header, runs),
	}
	for i := 2; i < len(lines); i++ {
		t.rows = append(t.rows, texts(simpleCells(lines[i], runs)))
	}
	return t, nil
}

func parseHeaderlessSimple(lines []string, runs []dashRun) (*Table, error) {
	last := len(lines) - 1
	closing, ok := dashRuns(lines[last])
	if !ok || last == 0 {
		return nil, syntaxErr(DialectSimple, last, "a headerless table ends with a dash line")
	}
	if len(closing) != len(runs) {
		return nil, syntaxErr(DialectSimple, last, "closing dash line has %d columns, want %d", len(closing), len(runs))
	}
	if last == 1 {
		return nil, syntaxErr(DialectSimple, 1, "table has no rows")
	}

	first := simpleCells(lines[1], runs)
	t := &Table{align: simpleAlign(first, runs)}
	for i := 1; i < last; i++ {
		t.rows = append(t.rows, texts(simpleCells(lines[i], runs)))
	}
	return t, nil
}

// columnGap separates columns in a regenerated simple table.
const columnGap = "  "

// simpleLines regenerates simple table text. Columns are widened where
// needed so that the alignment of every column reads back unchanged.
func (t *Table) simpleLines() []string {
	widths := columnWidths(t.header, t.rows, len(t.align))

	key := t.header
	if key == nil && len(t.rows) > 0 {
		key = t.rows[0]
	}
	for c, a := range t.align {
		if key == nil || key[c] == "" {
			continue
		}
		kw := runewidth.StringWidth(key[c])
		switch a {
		case AlignLeft, AlignRight:
			widths[c] = max(widths[c], kw+1)
		case AlignCenter:
			widths[c] = max(widths[c], kw+2)
		}
	}

	dashes := make([]string, len(widths))
	for c, w := range widths {
		dashes[c] = strings.Repeat("-", w)
	}
	rule := strings.Join(dashes, columnGap)

	row := func(cells []string) string {
		parts := make([]string, len(cells))
		for c, v := range cells {
			parts[c] = alignText(v, widths[c], t.align[c])
		}
		return strings.TrimRight(strings.Join(parts, columnGap), " ")
	}

	var lines []string
	if t.header != nil {
		lines = append(lines, row(t.header), rule)
	} else {
		lines = append(lines, rule)
	}
	for _, r := range t.rows {
		lines = append(lines, row(r))
	}
	if t.header == nil {
		lines = append(lines, rule)
	}
	return lines
}
