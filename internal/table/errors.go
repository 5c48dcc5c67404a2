package table

import (
	"errors"
	"fmt"
)

// Sentinel errors for table operations.
var (
	// ErrMalformed indicates text that cannot be read as the requested dialect.
	ErrMalformed = errors.New("malformed table")

	// ErrEmpty indicates there is no table text at all.
	ErrEmpty = errors.New("empty table text")

	// ErrUnknownDialect indicates an unrecognized dialect name.
	ErrUnknownDialect = errors.New("unknown table dialect")

	// ErrCellOutOfRange indicates a row or column outside the table.
	ErrCellOutOfRange = errors.New("cell out of range")

	// ErrNoHeader indicates a header operation on a headerless table.
	ErrNoHeader = errors.New("table has no header")
)

// SyntaxError reports where table text stopped making sense.
// Line is relative to the first line of the parsed text.
type SyntaxError struct {
	Dialect Dialect
	Line    int
	Msg     string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s table line %d: %s", e.Dialect, e.Line, e.Msg)
}

// Unwrap returns ErrMalformed so callers can test with errors.Is.
func (e *SyntaxError) Unwrap() error {
	return ErrMalformed
}

func syntaxErr(d Dialect, line int, format string, args ...any) error {
	return &SyntaxError{Dialect: d, Line: line, Msg: fmt.Sprintf(format, args...)}
}
