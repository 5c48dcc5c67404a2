package buffer

import (
	"errors"
	"io"
	"strings"
	"sync"
)

// Errors returned by buffer operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
)

// LineEnding specifies the line ending style.
type LineEnding uint8

const (
	LineEndingLF   LineEnding = iota // Unix: \n
	LineEndingCRLF                   // Windows: \r\n
	LineEndingCR                     // Old Mac: \r
)

// String returns the string representation of the line ending.
func (le LineEnding) String() string {
	switch le {
	case LineEndingCRLF:
		return "\\r\\n"
	case LineEndingCR:
		return "\\r"
	default:
		return "\\n"
	}
}

// Sequence returns the actual line ending characters.
func (le LineEnding) Sequence() string {
	switch le {
	case LineEndingCRLF:
		return "\r\n"
	case LineEndingCR:
		return "\r"
	default:
		return "\n"
	}
}

// Buffer is a line-oriented text buffer with a primary cursor and a viewport.
// All methods are thread-safe.
type Buffer struct {
	mu         sync.RWMutex
	lines      []string
	revisionID RevisionID
	lineEnding LineEnding

	cursor    Point
	hasCursor bool

	viewTop    int
	viewHeight int // <= 0 means the whole document is visible

	obsMu     sync.Mutex
	observers []*observerEntry
}

type observerEntry struct {
	o Observer
}

// NewBuffer creates a new empty buffer.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		lines:      []string{""},
		revisionID: NewRevisionID(),
		lineEnding: LineEndingLF,
		hasCursor:  true,
	}

	for _, opt := range opts {
		opt(b)
	}
	b.clampCursorLocked()

	return b
}

// NewBufferFromString creates a buffer with initial content.
func NewBufferFromString(s string, opts ...Option) *Buffer {
	b := NewBuffer(opts...)
	b.lines = splitLines(s)
	b.clampCursorLocked()
	return b
}

// NewBufferFromReader creates a buffer from an io.Reader.
func NewBufferFromReader(r io.Reader, opts ...Option) (*Buffer, error) {
	// Read all content first so CRLF sequences split across reads normalize correctly.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := string(data)
	opts = append([]Option{WithDetectedLineEnding(text)}, opts...)
	return NewBufferFromString(text, opts...), nil
}

// splitLines normalizes line endings to LF and splits on them, keeping the
// trailing empty element.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

// Read Operations

// Text returns the full buffer content joined with "\n".
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return strings.Join(b.lines, "\n")
}

// Content returns the buffer content using the buffer's line ending.
// Use it when writing the document back to disk.
func (b *Buffer) Content() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return strings.Join(b.lines, b.lineEnding.Sequence())
}

// LineEnding returns the buffer's line ending style.
func (b *Buffer) LineEnding() LineEnding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lineEnding
}

// IsEmpty returns true if the buffer holds a single empty line.
func (b *Buffer) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines) == 1 && b.lines[0] == ""
}

// LineCount returns the number of lines. It is always at least 1.
func (b *Buffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// LineText returns the text of a line without its terminator.
// The second result is false when the line does not exist.
func (b *Buffer) LineText(line int) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if line < 0 || line >= len(b.lines) {
		return "", false
	}
	return b.lines[line], true
}

// Lines returns a copy of the lines in r, clamped to the document.
func (b *Buffer) Lines(r LineRange) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	first := max(r.First, 0)
	last := min(r.Last, len(b.lines)-1)
	if first > last {
		return nil
	}
	return append([]string(nil), b.lines[first:last+1]...)
}

// Revision returns the current revision ID.
func (b *Buffer) Revision() RevisionID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revisionID
}

// Cursor and viewport

// Cursor returns the primary cursor position.
func (b *Buffer) Cursor() Point {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cursor
}

// CursorLine returns the primary cursor's line.
// The second result is false when the buffer has no cursor.
func (b *Buffer) CursorLine() (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cursor.Line, b.hasCursor
}

// SetCursor moves the primary cursor, clamping it to the document.
func (b *Buffer) SetCursor(p Point) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = p
	b.hasCursor = true
	b.clampCursorLocked()
}

// ClearCursor removes the primary cursor.
func (b *Buffer) ClearCursor() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hasCursor = false
}

func (b *Buffer) clampCursorLocked() {
	if b.cursor.Line < 0 {
		b.cursor.Line = 0
	}
	if b.cursor.Line >= len(b.lines) {
		b.cursor.Line = len(b.lines) - 1
	}
	if b.cursor.Column < 0 {
		b.cursor.Column = 0
	}
	if n := len(b.lines[b.cursor.Line]); b.cursor.Column > n {
		b.cursor.Column = n
	}
}

// SetViewport sets the visible line window. A non-positive height makes the
// whole document visible.
func (b *Buffer) SetViewport(top, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.viewTop = max(top, 0)
	b.viewHeight = height
}

// VisibleRange returns the visible lines, clamped to the document.
func (b *Buffer) VisibleRange() LineRange {
	b.mu.RLock()
	defer b.mu.RUnlock()

	last := len(b.lines) - 1
	if b.viewHeight <= 0 {
		return LineRange{First: 0, Last: last}
	}
	first := min(b.viewTop, last)
	return LineRange{First: first, Last: min(first+b.viewHeight-1, last)}
}

// Write Operations

// ReplaceLines replaces lines [first, last] with lines. last may be first-1 to
// insert before first, and first may equal LineCount() to append.
func (b *Buffer) ReplaceLines(first, last int, lines []string) error {
	b.mu.Lock()
	if first < 0 || first > len(b.lines) || last < first-1 || last >= len(b.lines) {
		b.mu.Unlock()
		return ErrRangeInvalid
	}

	old := b.lines[first : last+1]
	edit, ok := minimalEdit(first, old, lines)
	if !ok {
		b.mu.Unlock()
		return nil
	}
	b.applyLocked(&edit)
	b.mu.Unlock()

	b.notify(edit)
	return nil
}

// InsertText inserts text at p. The text may span several lines. When p is
// the cursor position the cursor moves to the end of the inserted text.
func (b *Buffer) InsertText(p Point, text string) error {
	b.mu.Lock()
	if p.Line < 0 || p.Line >= len(b.lines) || p.Column < 0 || p.Column > len(b.lines[p.Line]) {
		b.mu.Unlock()
		return ErrOffsetOutOfRange
	}

	line := b.lines[p.Line]
	inserted := splitLines(text)
	repl := make([]string, len(inserted))
	copy(repl, inserted)
	repl[0] = line[:p.Column] + repl[0]
	endCol := len(repl[len(repl)-1])
	repl[len(repl)-1] += line[p.Column:]

	atCursor := b.hasCursor && b.cursor == p
	edit, ok := minimalEdit(p.Line, []string{line}, repl)
	if !ok {
		b.mu.Unlock()
		return nil
	}
	b.applyLocked(&edit)
	if atCursor {
		b.cursor = Point{Line: p.Line + len(repl) - 1, Column: endCol}
	}
	b.mu.Unlock()

	b.notify(edit)
	return nil
}

// applyLocked splices the edit into the line slice, shifts the cursor and
// stamps a new revision (must hold lock).
func (b *Buffer) applyLocked(e *Edit) {
	tail := append([]string(nil), b.lines[e.First+e.OldCount:]...)
	b.lines = append(append(b.lines[:e.First], e.NewLines...), tail...)
	if len(b.lines) == 0 {
		b.lines = []string{""}
	}

	if b.cursor.Line >= e.First+e.OldCount {
		b.cursor.Line += e.Delta()
	} else if b.cursor.Line >= e.First {
		b.cursor.Line = e.First
		b.cursor.Column = 0
	}
	b.clampCursorLocked()

	b.revisionID = NewRevisionID()
	e.Revision = b.revisionID
}

// Observers

// AddObserver registers o for edit notifications and returns a function that
// removes it again.
func (b *Buffer) AddObserver(o Observer) (remove func()) {
	entry := &observerEntry{o: o}

	b.obsMu.Lock()
	b.observers = append(b.observers, entry)
	b.obsMu.Unlock()

	return func() {
		b.obsMu.Lock()
		defer b.obsMu.Unlock()
		for i, e := range b.observers {
			if e == entry {
				b.observers = append(b.observers[:i], b.observers[i+1:]...)
				return
			}
		}
	}
}

func (b *Buffer) notify(e Edit) {
	b.mu.RLock()
	e.Revision = b.revisionID
	b.mu.RUnlock()

	b.obsMu.Lock()
	observers := append([]*observerEntry(nil), b.observers...)
	b.obsMu.Unlock()

	for _, entry := range observers {
		entry.o.OnEdit(e)
	}
}

// Snapshot returns a read-only copy of the buffer's current state.
func (b *Buffer) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &Snapshot{
		lines:      append([]string(nil), b.lines...),
		revisionID: b.revisionID,
		lineEnding: b.lineEnding,
	}
}
