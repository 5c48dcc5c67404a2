// Package overlay binds fixed line ranges of a buffer to replacement
// renderings. A bound range is drawn by its handle instead of its text until
// the binding is cleared.
package overlay

import (
	"errors"

	"github.com/dshills/tablestorm/internal/engine/buffer"
)

// Errors returned by binding operations.
var (
	// ErrOverlap indicates a binding already covers part of the range.
	ErrOverlap = errors.New("range overlaps an existing binding")

	// ErrInvalidRange indicates a range that does not span at least two lines.
	ErrInvalidRange = errors.New("invalid binding range")

	// ErrNilHandle indicates a binding without a replacement handle.
	ErrNilHandle = errors.New("binding requires a handle")
)

// State is the lifecycle state of a binding.
type State uint8

const (
	// StateBound means the binding still replaces its range.
	StateBound State = iota

	// StateCleared means the binding was removed and its range is meaningless.
	StateCleared
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateBound:
		return "bound"
	case StateCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Handle is the rendering that replaces a bound range.
type Handle interface {
	// Height returns the number of screen rows the rendering occupies.
	Height() int
}

// Binding associates a line range with a replacement handle.
// A Binding is only mutated by its Manager.
type Binding struct {
	id     string
	rng    buffer.LineRange
	handle Handle
	state  State
}

// ID returns the binding identifier.
func (b *Binding) ID() string {
	return b.id
}

// State returns the current lifecycle state.
func (b *Binding) State() State {
	return b.state
}

// Handle returns the replacement handle.
func (b *Binding) Handle() Handle {
	return b.handle
}

// Range returns the bound lines. The second result is false once the binding
// has been cleared.
func (b *Binding) Range() (buffer.LineRange, bool) {
	if b.state != StateBound {
		return buffer.LineRange{}, false
	}
	return b.rng, true
}
