package manager

import (
	"errors"
	"fmt"

	"github.com/dshills/tablestorm/internal/engine/buffer"
	"github.com/dshills/tablestorm/internal/table"
)

// ErrClosed is returned by operations on a closed manager.
var ErrClosed = errors.New("manager is closed")

// ConstructionError reports a detected span that could not be turned into
// a table.
type ConstructionError struct {
	Range   buffer.LineRange
	Dialect table.Dialect
	Err     error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct %s table at lines %s: %v", e.Dialect, e.Range, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConstructionError) Unwrap() error {
	return e.Err
}
