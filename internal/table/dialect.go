package table

import (
	"fmt"
	"strings"
)

// Dialect is a table grammar.
type Dialect uint8

const (
	// DialectSimple is a pandoc simple table.
	DialectSimple Dialect = iota

	// DialectGrid is a pandoc grid table.
	DialectGrid

	// DialectPipe is a GitHub flavored pipe table.
	DialectPipe
)

// Dialects lists every dialect in detection order.
var Dialects = []Dialect{DialectSimple, DialectGrid, DialectPipe}

// String returns the string representation of the dialect.
func (d Dialect) String() string {
	switch d {
	case DialectSimple:
		return "simple"
	case DialectGrid:
		return "grid"
	case DialectPipe:
		return "pipe"
	default:
		return "unknown"
	}
}

// ParseDialect parses a dialect name.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simple":
		return DialectSimple, nil
	case "grid":
		return DialectGrid, nil
	case "pipe":
		return DialectPipe, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDialect, s)
	}
}

// Alignment is the horizontal alignment of a column.
type Alignment uint8

const (
	AlignDefault Alignment = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// String returns the string representation of the alignment.
func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "default"
	}
}

// alignFromColons reads the alignment of a rule cell such as ":---:".
func alignFromColons(left, right bool) Alignment {
	switch {
	case left && right:
		return AlignCenter
	case left:
		return AlignLeft
	case right:
		return AlignRight
	default:
		return AlignDefault
	}
}
