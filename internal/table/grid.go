package table

import (
	"strings"
)

// gridRule is a parsed +---+ or +===+ line.
type gridRule struct {
	// bounds are the display columns of every '+'.
	bounds []int
	header bool
	align  []Alignment
}

// parseGridRule reads a rule line. Fill characters must all be '-' or all be
// '='; a colon at either end of a segment marks alignment.
func parseGridRule(line string) (gridRule, bool) {
	line = strings.TrimRight(line, " \t")
	if len(line) < 3 || line[0] != '+' || line[len(line)-1] != '+' {
		return gridRule{}, false
	}

	var (
		r    gridRule
		fill byte
	)
	r.bounds = append(r.bounds, 0)
	for _, seg := range strings.Split(line[1:len(line)-1], "+") {
		left := strings.HasPrefix(seg, ":")
		right := len(seg) > 1 && strings.HasSuffix(seg, ":")
		body := strings.TrimSuffix(strings.TrimPrefix(seg, ":"), ":")
		if body == "" {
			return gridRule{}, false
		}
		if fill == 0 {
			fill = body[0]
		}
		if (fill != '-' && fill != '=') || strings.Trim(body, string(fill)) != "" {
			return gridRule{}, false
		}
		r.align = append(r.align, alignFromColons(left, right))
		r.bounds = append(r.bounds, r.bounds[len(r.bounds)-1]+len(seg)+1)
	}
	r.header = fill == '='
	return r, true
}

func sameBounds(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// gridCells splits a content line at the rule bounds.
func gridCells(line string, bounds []int) ([]string, bool) {
	for _, b := range bounds {
		if r, ok := runeAtColumn(line, b); !ok || r != '|' {
			return nil, false
		}
	}
	cells := make([]string, len(bounds)-1)
	for c := range cells {
		cells[c] = strings.TrimSpace(sliceColumns(line, bounds[c]+1, bounds[c+1]))
	}
	return cells, true
}

// parseGrid reads a pandoc grid table.
func parseGrid(lines []string) (*Table, error) {
	first, ok := parseGridRule(lines[0])
	if !ok || first.header {
		return nil, syntaxErr(DialectGrid, 0, "a grid table starts with a +---+ rule")
	}

	t := &Table{align: first.align}
	var block [][]string

	flush := func(line int) error {
		if len(block) == 0 {
			return syntaxErr(DialectGrid, line, "empty row")
		}
		t.rows = append(t.rows, joinBlock(block))
		block = nil
		return nil
	}

	for i := 1; i < len(lines); i++ {
		if rule, ok := parseGridRule(lines[i]); ok {
			if !sameBounds(rule.bounds, first.bounds) {
				return nil, syntaxErr(DialectGrid, i, "rule does not line up with the first rule")
			}
			if err := flush(i); err != nil {
				return nil, err
			}
			if rule.header {
				if t.header != nil || len(t.rows) != 1 {
					return nil, syntaxErr(DialectGrid, i, "header rule must follow the first row")
				}
				t.header = t.rows[0]
				t.rows = t.rows[:0]
				t.align = rule.align
			}
			continue
		}

		cells, ok := gridCells(lines[i], first.bounds)
		if !ok {
			return nil, syntaxErr(DialectGrid, i, "cell separators do not line up with the rule")
		}
		block = append(block, cells)
	}

	if len(block) > 0 {
		return nil, syntaxErr(DialectGrid, len(lines)-1, "a grid table ends with a rule")
	}
	return t, nil
}

// joinBlock merges the physical lines of one grid row into cells.
func joinBlock(block [][]string) []string {
	cells := make([]string, len(block[0]))
	for c := range cells {
		var parts []string
		for _, line := range block {
			if line[c] != "" {
				parts = append(parts, line[c])
			}
		}
		cells[c] = strings.Join(parts, " ")
	}
	return cells
}

// gridLines regenerates grid table text.
func (t *Table) gridLines() []string {
	widths := columnWidths(t.header, t.rows, len(t.align))

	plain := gridRuleLine(widths, '-', nil)
	lines := make([]string, 0, 2*len(t.rows)+4)

	if t.header != nil {
		lines = append(lines, plain, gridRow(t.header, widths, t.align))
		lines = append(lines, gridRuleLine(widths, '=', t.align))
	} else {
		lines = append(lines, gridRuleLine(widths, '-', t.align))
	}
	for _, r := range t.rows {
		lines = append(lines, gridRow(r, widths, t.align), plain)
	}
	return lines
}

func gridRuleLine(widths []int, fill byte, align []Alignment) string {
	var b strings.Builder
	b.WriteByte('+')
	for c, w := range widths {
		seg := []byte(strings.Repeat(string(fill), w+2))
		if align != nil {
			switch align[c] {
			case AlignLeft:
				seg[0] = ':'
			case AlignRight:
				seg[len(seg)-1] = ':'
			case AlignCenter:
				seg[0], seg[len(seg)-1] = ':', ':'
			}
		}
		b.Write(seg)
		b.WriteByte('+')
	}
	return b.String()
}

func gridRow(cells []string, widths []int, align []Alignment) string {
	var b strings.Builder
	b.WriteByte('|')
	for c, v := range cells {
		b.WriteByte(' ')
		b.WriteString(alignText(v, widths[c], align[c]))
		b.WriteString(" |")
	}
	return b.String()
}
