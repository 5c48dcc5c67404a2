package detect

import (
	"github.com/dshills/tablestorm/internal/engine/buffer"
	"github.com/dshills/tablestorm/internal/engine/syntax"
)

// Cursor reports the line of the primary cursor, if there is one.
type Cursor interface {
	CursorLine() (int, bool)
}

// Bindings reports whether live bindings cover part of a range.
type Bindings interface {
	Overlaps(rng buffer.LineRange) bool
}

// Verdict is the outcome of validating a span.
type Verdict uint8

const (
	// Accepted means the span may be converted.
	Accepted Verdict = iota

	// RejectedCursor means the cursor is on one of the span's lines.
	RejectedCursor

	// RejectedBinding means a live binding covers part of the span.
	RejectedBinding

	// RejectedOverlap means a span accepted earlier in the pass covers part
	// of the span.
	RejectedOverlap

	// RejectedMode means the first or last line does not start in prose.
	RejectedMode
)

// String returns the string representation of the verdict.
func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case RejectedCursor:
		return "cursor inside span"
	case RejectedBinding:
		return "overlaps a binding"
	case RejectedOverlap:
		return "overlaps an accepted span"
	case RejectedMode:
		return "boundary line not in prose"
	default:
		return "unknown"
	}
}

// Validator gates spans for one detection pass.
type Validator struct {
	cursor   Cursor
	bindings Bindings
	modes    Modes
	accepted []buffer.LineRange
}

// NewValidator creates a validator. cursor and bindings may be nil.
func NewValidator(cursor Cursor, bindings Bindings, modes Modes) *Validator {
	return &Validator{
		cursor:   cursor,
		bindings: bindings,
		modes:    modes,
	}
}

// Check returns the verdict for s without recording it.
func (v *Validator) Check(s Span) Verdict {
	if v.cursor != nil {
		if line, ok := v.cursor.CursorLine(); ok && s.Contains(line) {
			return RejectedCursor
		}
	}
	if v.bindings != nil && v.bindings.Overlaps(s.LineRange) {
		return RejectedBinding
	}
	for _, a := range v.accepted {
		if a.Overlaps(s.LineRange) {
			return RejectedOverlap
		}
	}
	// Column 0 only: the closing line of a frontmatter block reads as prose
	// past its last character.
	if v.modes.ModeAt(s.First, 0) != syntax.ModeMarkdown ||
		v.modes.ModeAt(s.Last, 0) != syntax.ModeMarkdown {
		return RejectedMode
	}
	return Accepted
}

// Accept checks s and records it when accepted.
func (v *Validator) Accept(s Span) Verdict {
	verdict := v.Check(s)
	if verdict == Accepted {
		v.accepted = append(v.accepted, s.LineRange)
	}
	return verdict
}

// Reset forgets the spans accepted so far.
func (v *Validator) Reset() {
	v.accepted = v.accepted[:0]
}
