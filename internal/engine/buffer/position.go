package buffer

import (
	"fmt"
	"sync/atomic"
)

// Point represents a line and column position.
// Both Line and Column are 0-indexed.
// Column is measured in bytes from the start of the line.
type Point struct {
	Line   int // 0-indexed line number
	Column int // 0-indexed column (byte offset within line)
}

// String returns a human-readable representation of the point.
func (p Point) String() string {
	return fmt.Sprintf("(%d:%d)", p.Line, p.Column)
}

// Compare returns -1 if p < other, 0 if p == other, 1 if p > other.
func (p Point) Compare(other Point) int {
	if p.Line < other.Line {
		return -1
	}
	if p.Line > other.Line {
		return 1
	}
	if p.Column < other.Column {
		return -1
	}
	if p.Column > other.Column {
		return 1
	}
	return 0
}

// Before returns true if p comes before other.
func (p Point) Before(other Point) bool {
	return p.Compare(other) < 0
}

// LineRange is an inclusive range of line indices: [First, Last].
type LineRange struct {
	First int
	Last  int
}

// String returns a human-readable representation of the range.
func (r LineRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.First, r.Last)
}

// Len returns the number of lines covered by the range.
func (r LineRange) Len() int {
	if r.Last < r.First {
		return 0
	}
	return r.Last - r.First + 1
}

// IsValid reports whether the range covers at least one line.
func (r LineRange) IsValid() bool {
	return r.First >= 0 && r.First <= r.Last
}

// Contains returns true if the line is within the range.
func (r LineRange) Contains(line int) bool {
	return line >= r.First && line <= r.Last
}

// Overlaps returns true if the two ranges share at least one line.
func (r LineRange) Overlaps(other LineRange) bool {
	return r.First <= other.Last && other.First <= r.Last
}

// RevisionID uniquely identifies a buffer revision.
// Each modification to the buffer creates a new revision.
type RevisionID uint64

// revisionCounter is used to generate unique revision IDs.
var revisionCounter uint64

// NewRevisionID generates a new unique revision ID.
// This is thread-safe using atomic operations.
func NewRevisionID() RevisionID {
	return RevisionID(atomic.AddUint64(&revisionCounter, 1))
}
