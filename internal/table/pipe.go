package table

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var pipeParser parser.Parser = goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()

// parsePipe reads a GitHub flavored pipe table. The whole text must form a
// single table: header, delimiter row, then one row per remaining line.
func parsePipe(lines []string) (*Table, error) {
	if len(lines) < 2 {
		return nil, syntaxErr(DialectPipe, 0, "a pipe table needs a header and a delimiter row")
	}

	source := []byte(strings.Join(lines, "\n"))
	doc := pipeParser.Parse(text.NewReader(source))

	node := doc.FirstChild()
	if node == nil || node.Kind() != extast.KindTable {
		return nil, syntaxErr(DialectPipe, 1, "delimiter row does not match the header")
	}
	if node.NextSibling() != nil {
		return nil, syntaxErr(DialectPipe, lineOf(source, node.NextSibling()), "text after the table")
	}
	gt := node.(*extast.Table)

	t := &Table{}
	for _, a := range gt.Alignments {
		t.align = append(t.align, alignFromGoldmark(a))
	}

	for row := gt.FirstChild(); row != nil; row = row.NextSibling() {
		cells := pipeCells(row, source)
		if row.Kind() == extast.KindTableHeader {
			t.header = cells
			continue
		}
		t.rows = append(t.rows, cells)
	}

	if t.header == nil {
		return nil, syntaxErr(DialectPipe, 0, "missing header row")
	}
	if want := len(lines) - 2; len(t.rows) != want {
		return nil, syntaxErr(DialectPipe, 2+len(t.rows), "line is not a table row")
	}
	return t, nil
}

// pipeCells returns the raw text of each cell in a header or body row.
func pipeCells(row ast.Node, source []byte) []string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cells = append(cells, string(c.Lines().Value(source)))
	}
	return cells
}

// lineOf returns the zero based line a block node starts on.
func lineOf(source []byte, n ast.Node) int {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return 0
	}
	return strings.Count(string(source[:lines.At(0).Start]), "\n")
}

func alignFromGoldmark(a extast.Alignment) Alignment {
	switch a {
	case extast.AlignLeft:
		return AlignLeft
	case extast.AlignCenter:
		return AlignCenter
	case extast.AlignRight:
		return AlignRight
	default:
		return AlignDefault
	}
}

// pipeLines regenerates pipe table text.
func (t *Table) pipeLines() []string {
	header := make([]string, len(t.align))
	if t.header != nil {
		header = escapeAll(t.header)
	}
	rows := make([][]string, len(t.rows))
	for i, r := range t.rows {
		rows[i] = escapeAll(r)
	}
	widths := columnWidths(header, rows, len(t.align))

	lines := make([]string, 0, len(t.rows)+2)
	lines = append(lines, pipeRow(header, widths, t.align))

	delim := make([]string, len(widths))
	for c, w := range widths {
		delim[c] = pipeDelimiter(w, t.align[c])
	}
	lines = append(lines, "| "+strings.Join(delim, " | ")+" |")

	for _, r := range rows {
		lines = append(lines, pipeRow(r, widths, t.align))
	}
	return lines
}

func pipeRow(cells []string, widths []int, align []Alignment) string {
	parts := make([]string, len(cells))
	for c, v := range cells {
		parts[c] = alignText(v, widths[c], align[c])
	}
	return "| " + strings.Join(parts, " | ") + " |"
}

func pipeDelimiter(w int, a Alignment) string {
	switch a {
	case AlignLeft:
		return ":" + strings.Repeat("-", w-1)
	case AlignRight:
		return strings.Repeat("-", w-1) + ":"
	case AlignCenter:
		return ":" + strings.Repeat("-", w-2) + ":"
	default:
		return strings.Repeat("-", w)
	}
}

func escapeAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, v := range cells {
		out[i] = escapePipes(v)
	}
	return out
}

// escapePipes escapes every | not already preceded by a backslash.
func escapePipes(s string) string {
	if !strings.Contains(s, "|") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '|' && (i == 0 || s[i-1] != '\\') {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
