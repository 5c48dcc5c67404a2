package table

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// minColumnWidth keeps regenerated rules at least three characters wide.
const minColumnWidth = 3

// columnWidths returns the display width of each of n columns.
// header may be nil.
func columnWidths(header []string, rows [][]string, n int) []int {
	widths := make([]int, n)
	for c := range widths {
		widths[c] = minColumnWidth
		if header != nil {
			widths[c] = max(widths[c], runewidth.StringWidth(header[c]))
		}
		for _, r := range rows {
			widths[c] = max(widths[c], runewidth.StringWidth(r[c]))
		}
	}
	return widths
}

// alignText pads s to width w.
func alignText(s string, w int, a Alignment) string {
	sw := runewidth.StringWidth(s)
	if sw >= w {
		return s
	}
	switch a {
	case AlignRight:
		return runewidth.FillLeft(s, w)
	case AlignCenter:
		left := (w - sw) / 2
		return strings.Repeat(" ", left) + runewidth.FillRight(s, w-left)
	default:
		return runewidth.FillRight(s, w)
	}
}

// sliceColumns returns the part of line between display columns from and
// to. A negative to means the end of the line.
func sliceColumns(line string, from, to int) string {
	var b strings.Builder
	col := 0
	for _, r := range line {
		if col >= from && (to < 0 || col < to) {
			b.WriteRune(r)
		}
		col += runewidth.RuneWidth(r)
		if to >= 0 && col >= to {
			break
		}
	}
	return b.String()
}

// runeAtColumn returns the rune that starts at display column col.
func runeAtColumn(line string, col int) (rune, bool) {
	c := 0
	for _, r := range line {
		if c == col {
			return r, true
		}
		if c > col {
			break
		}
		c += runewidth.RuneWidth(r)
	}
	return 0, false
}

// DisplayWidth returns the terminal width of s.
func DisplayWidth(s string) int {
	return runewidth.StringWidth(s)
}
