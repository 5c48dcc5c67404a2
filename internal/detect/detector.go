package detect

import (
	"fmt"
	"iter"

	"github.com/dshills/tablestorm/internal/engine/buffer"
	"github.com/dshills/tablestorm/internal/engine/syntax"
	"github.com/dshills/tablestorm/internal/table"
)

// DefaultMaxLines bounds the forward search for the end of a table.
const DefaultMaxLines = 2000

// Lines is read access to document text.
type Lines interface {
	LineCount() int
	LineText(line int) (string, bool)
}

// Modes reports the syntax mode at a position.
type Modes interface {
	ModeAt(line, col int) syntax.Mode
}

// Logger receives debug output about skipped candidates.
type Logger interface {
	Debug(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

// Span is a detected table.
type Span struct {
	buffer.LineRange
	Dialect table.Dialect
}

// String returns a description such as "pipe [0,2]".
func (s Span) String() string {
	return fmt.Sprintf("%s %s", s.Dialect, s.LineRange)
}

// Detector finds table spans in a document.
type Detector struct {
	lines    Lines
	modes    Modes
	maxLines int
	enabled  map[table.Dialect]bool
	log      Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithMaxLines sets how far a span's end is searched for. Values below one
// keep the default.
func WithMaxLines(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.maxLines = n
		}
	}
}

// WithDialects restricts detection to the given dialects.
func WithDialects(dialects ...table.Dialect) Option {
	return func(d *Detector) {
		d.enabled = make(map[table.Dialect]bool, len(dialects))
		for _, dl := range dialects {
			d.enabled[dl] = true
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// New creates a detector over a document and its syntax modes.
func New(lines Lines, modes Modes, opts ...Option) *Detector {
	d := &Detector{
		lines:    lines,
		modes:    modes,
		maxLines: DefaultMaxLines,
		log:      nopLogger{},
	}
	WithDialects(table.Dialects...)(d)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Scan yields the spans in rng that pass a fresh Validator built from cursor
// and bindings. Either may be nil.
func (d *Detector) Scan(rng buffer.LineRange, cursor Cursor, bindings Bindings) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		v := NewValidator(cursor, bindings, d.modes)
		for s := range d.Candidates(rng) {
			if verdict := v.Accept(s); verdict != Accepted {
				d.log.Debug("skip %s: %s", s, verdict)
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Candidates yields every span whose heading starts in rng, before
// validation. Once a span is computed the scan resumes after its last line.
func (d *Detector) Candidates(rng buffer.LineRange) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		n := d.lines.LineCount()
		first := max(rng.First, 0)
		last := min(rng.Last, n-1)

		for i := first; i <= last; i++ {
			s, ok := d.candidateAt(i)
			if !ok {
				continue
			}
			if s.Last > i {
				i = s.Last
			}
			if s.First == s.Last {
				d.log.Debug("skip %s: single line", s)
				continue
			}
			if s.Dialect == table.DialectSimple && isSetextHeading(d, s) {
				d.log.Debug("skip %s: setext heading", s)
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// candidateAt expands the heading on line i. It returns false when line i
// is no heading or the table has no boundary.
func (d *Detector) candidateAt(i int) (Span, bool) {
	if d.modes.ModeAt(i, 0) != syntax.ModeMarkdown {
		return Span{}, false
	}
	text, _ := d.lines.LineText(i)
	dialect, ok := Classify(text).Dialect()
	if !ok || !d.enabled[dialect] {
		return Span{}, false
	}

	s := Span{Dialect: dialect}
	switch dialect {
	case table.DialectSimple:
		if d.blankAt(i + 1) {
			return Span{}, false
		}
		if i == 0 || d.blankAt(i-1) {
			end, ok := d.closingRule(i + 1)
			if !ok {
				return Span{}, false
			}
			s.First, s.Last = i, end
			return s, true
		}
		s.First = i - 1

	case table.DialectGrid:
		s.First = i

	case table.DialectPipe:
		if i == 0 || d.blankAt(i-1) {
			return Span{}, false
		}
		s.First = i - 1
	}

	from := i
	if dialect == table.DialectGrid {
		from = i + 1
	}
	end, ok := d.lastBeforeBlank(from)
	if !ok {
		d.log.Debug("skip %s heading on line %d: no end within %d lines", dialect, i, d.maxLines)
		return Span{}, false
	}
	s.Last = end
	return s, true
}

// blankAt reports whether line is blank or past the end of the document.
func (d *Detector) blankAt(line int) bool {
	text, ok := d.lines.LineText(line)
	return !ok || isBlank(text)
}

// lastBeforeBlank returns the line before the first blank line at or after
// from. The end of the document counts as blank.
func (d *Detector) lastBeforeBlank(from int) (int, bool) {
	n := d.lines.LineCount()
	for j := from; j-from <= d.maxLines; j++ {
		if j >= n {
			return n - 1, true
		}
		if d.blankAt(j) {
			return j - 1, true
		}
	}
	return 0, false
}

// closingRule returns the first line at or after from that is again a simple
// heading, provided no blank line comes first.
func (d *Detector) closingRule(from int) (int, bool) {
	n := d.lines.LineCount()
	for j := from; j < n && j-from <= d.maxLines; j++ {
		text, _ := d.lines.LineText(j)
		if isBlank(text) {
			return 0, false
		}
		if Classify(text) == KindSimple {
			return j, true
		}
	}
	return 0, false
}

// isSetextHeading reports whether a short simple span is really a heading
// underlined with dashes, such as "Title" over "-----".
func isSetextHeading(d *Detector, s Span) bool {
	if s.Len() > 3 {
		return false
	}
	text, _ := d.lines.LineText(s.First + 1)
	return isAllDashes(text)
}
