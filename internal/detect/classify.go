package detect

import (
	"regexp"
	"strings"

	"github.com/dshills/tablestorm/internal/table"
)

// Kind is the classification of a possible table heading line.
type Kind uint8

const (
	// KindNone means the line cannot start a table.
	KindNone Kind = iota

	// KindSimple is a simple table dash line such as "---  -----".
	KindSimple

	// KindGrid is a grid table rule such as "+---+:---:+".
	KindGrid

	// KindPipe is a pipe table delimiter row such as "| --- | :-: |".
	KindPipe
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindGrid:
		return "grid"
	case KindPipe:
		return "pipe"
	default:
		return "none"
	}
}

// Dialect returns the table dialect a heading kind introduces.
func (k Kind) Dialect() (table.Dialect, bool) {
	switch k {
	case KindSimple:
		return table.DialectSimple, true
	case KindGrid:
		return table.DialectGrid, true
	case KindPipe:
		return table.DialectPipe, true
	default:
		return 0, false
	}
}

var (
	simpleHeading = regexp.MustCompile(`^ {0,3}-+(?: +-+)* *$`)
	gridHeading   = regexp.MustCompile(`^\+(?:(?::?-+:?\+)+|(?::?=+:?\+)+)\s*$`)
	pipeHeading   = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(?:\|\s*:?-+:?\s*)*\|?\s*$`)
)

// Classify parses a line once into its heading kind. The alternatives are
// tried in order simple, grid, pipe; their grammars do not overlap.
func Classify(line string) Kind {
	switch {
	case simpleHeading.MatchString(line) && strings.Count(line, "-") >= 3:
		return KindSimple
	case gridHeading.MatchString(line):
		return KindGrid
	case strings.Contains(line, "|") && pipeHeading.MatchString(line):
		return KindPipe
	default:
		return KindNone
	}
}

// isBlank reports whether a line is empty or whitespace only.
func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// isAllDashes reports whether a line consists solely of dashes.
func isAllDashes(line string) bool {
	line = strings.TrimSpace(line)
	return line != "" && strings.Trim(line, "-") == ""
}
