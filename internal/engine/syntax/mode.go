// Package syntax answers "which syntax mode is active at this position" for a
// Markdown buffer: prose, YAML frontmatter, fenced code, inline code or an
// HTML comment.
//
// Modes are computed line by line from the top of the document, the way a
// highlighter carries lexer state across lines, and cached per buffer
// revision.
package syntax

// Mode is the syntax mode active at a buffer position.
type Mode uint8

const (
	// ModeMarkdown is ordinary Markdown prose.
	ModeMarkdown Mode = iota

	// ModeFrontmatter is a YAML metadata block delimited by "---" lines at
	// the top of the document.
	ModeFrontmatter

	// ModeFencedCode is a ``` or ~~~ fenced code block, fences included.
	ModeFencedCode

	// ModeInlineCode is a backtick code span, delimiters included.
	ModeInlineCode

	// ModeHTMLComment is an <!-- --> comment, delimiters included.
	ModeHTMLComment
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeMarkdown:
		return "markdown"
	case ModeFrontmatter:
		return "frontmatter"
	case ModeFencedCode:
		return "fenced-code"
	case ModeInlineCode:
		return "inline-code"
	case ModeHTMLComment:
		return "html-comment"
	default:
		return "unknown"
	}
}

// IsProse returns true for plain Markdown content.
func (m Mode) IsProse() bool {
	return m == ModeMarkdown
}

// segment switches the mode from column start to the end of the line or the
// next segment.
type segment struct {
	start int
	mode  Mode
}

// lineModes holds the mode segments of one line, sorted by start column.
type lineModes []segment

// at returns the mode at col.
func (lm lineModes) at(col int) Mode {
	mode := ModeMarkdown
	for _, seg := range lm {
		if seg.start > col {
			break
		}
		mode = seg.mode
	}
	return mode
}

// add appends a segment, merging it with the previous one when possible.
func (lm lineModes) add(start int, mode Mode) lineModes {
	if n := len(lm); n > 0 {
		last := lm[n-1]
		if last.start == start {
			lm[n-1].mode = mode
			return lm
		}
		if last.mode == mode {
			return lm
		}
	}
	return append(lm, segment{start: start, mode: mode})
}
