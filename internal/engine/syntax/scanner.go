package syntax

import (
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dshills/tablestorm/internal/engine/buffer"
)

// Source is the text the scanner reads.
type Source interface {
	LineCount() int
	LineText(line int) (string, bool)
	Revision() buffer.RevisionID
}

// Scanner computes syntax modes for a Source. It re-lexes the document
// lazily whenever the source revision changes.
type Scanner struct {
	mu    sync.Mutex
	src   Source
	rev   buffer.RevisionID
	valid bool
	lines []lineModes
	front *Frontmatter
}

// Frontmatter is the metadata block at the top of a document. The block is
// recognized by its delimiters alone; Err reports a body that is not a YAML
// mapping, which is common while the block is being typed.
type Frontmatter struct {
	// First and Last are the delimiter lines.
	First, Last int

	Meta map[string]any
	Err  error
}

// Valid reports whether the body parsed as a YAML mapping.
func (f Frontmatter) Valid() bool {
	return f.Err == nil
}

// NewScanner creates a scanner over src.
func NewScanner(src Source) *Scanner {
	return &Scanner{src: src}
}

// ModeAt returns the mode at (line, col). Positions outside the document
// are reported as Markdown.
func (s *Scanner) ModeAt(line, col int) Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()
	if line < 0 || line >= len(s.lines) {
		return ModeMarkdown
	}
	return s.lines[line].at(col)
}

// Frontmatter returns the document's frontmatter block, if it has one.
func (s *Scanner) Frontmatter() (Frontmatter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked()
	if s.front == nil {
		return Frontmatter{}, false
	}
	return *s.front, true
}

// Invalidate forces a re-lex on the next query.
func (s *Scanner) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = false
}

// ensureLocked rebuilds the mode table when the source moved on (must hold lock).
func (s *Scanner) ensureLocked() {
	rev := s.src.Revision()
	if s.valid && rev == s.rev {
		return
	}

	n := s.src.LineCount()
	text := make([]string, n)
	for i := range text {
		text[i], _ = s.src.LineText(i)
	}

	s.lines = lex(text)
	s.front = nil
	if end, ok := frontmatterEnd(text); ok {
		s.front = parseFrontmatter(text, end)
	}
	s.rev = rev
	s.valid = true
}

// fence tracks an open fenced code block.
type fence struct {
	char byte
	n    int
}

// lex computes the mode segments for every line.
func lex(text []string) []lineModes {
	out := make([]lineModes, len(text))

	start := 0
	if end, ok := frontmatterEnd(text); ok {
		for i := 0; i < end; i++ {
			out[i] = lineModes{{start: 0, mode: ModeFrontmatter}}
		}
		// The closing delimiter is frontmatter up to its last character; the
		// position just past it already belongs to the document body.
		out[end] = lineModes{
			{start: 0, mode: ModeFrontmatter},
			{start: len(text[end]), mode: ModeMarkdown},
		}
		start = end + 1
	}

	var open *fence
	inComment := false
	for i := start; i < len(text); i++ {
		line := text[i]

		switch {
		case open != nil:
			out[i] = lineModes{{start: 0, mode: ModeFencedCode}}
			if closesFence(line, *open) {
				open = nil
			}

		case inComment:
			end := strings.Index(line, "-->")
			if end < 0 {
				out[i] = lineModes{{start: 0, mode: ModeHTMLComment}}
				continue
			}
			lm := lineModes{{start: 0, mode: ModeHTMLComment}}
			out[i], inComment = lexInline(line, end+3, lm)

		default:
			if f, ok := opensFence(line); ok {
				out[i] = lineModes{{start: 0, mode: ModeFencedCode}}
				open = &f
				continue
			}
			out[i], inComment = lexInline(line, 0, nil)
		}
	}

	return out
}

// lexInline scans a prose line from col for code spans and comments. It
// reports whether an HTML comment is left open at the end of the line.
func lexInline(line string, col int, lm lineModes) (lineModes, bool) {
	lm = lm.add(col, ModeMarkdown)

	for p := col; p < len(line); {
		switch {
		case line[p] == '`':
			n := runLength(line, p, '`')
			if end, ok := closingRun(line, p+n, n); ok {
				lm = lm.add(p, ModeInlineCode)
				lm = lm.add(end, ModeMarkdown)
				p = end
				continue
			}
			p += n

		case strings.HasPrefix(line[p:], "<!--"):
			lm = lm.add(p, ModeHTMLComment)
			end := strings.Index(line[p+4:], "-->")
			if end < 0 {
				return lm, true
			}
			p += 4 + end + 3
			lm = lm.add(p, ModeMarkdown)

		default:
			p++
		}
	}
	return lm, false
}

// runLength counts consecutive c bytes starting at p.
func runLength(line string, p int, c byte) int {
	n := 0
	for p+n < len(line) && line[p+n] == c {
		n++
	}
	return n
}

// closingRun finds a backtick run of exactly n characters at or after p and
// returns the column just past it.
func closingRun(line string, p, n int) (int, bool) {
	for p < len(line) {
		if line[p] != '`' {
			p++
			continue
		}
		m := runLength(line, p, '`')
		if m == n {
			return p + m, true
		}
		p += m
	}
	return 0, false
}

// opensFence reports whether line opens a fenced code block.
func opensFence(line string) (fence, bool) {
	indent := len(line) - len(strings.TrimLeft(line, " "))
	if indent > 3 {
		return fence{}, false
	}
	rest := line[indent:]
	if rest == "" || (rest[0] != '`' && rest[0] != '~') {
		return fence{}, false
	}
	n := runLength(rest, 0, rest[0])
	if n < 3 {
		return fence{}, false
	}
	// A backtick fence's info string may not contain backticks.
	if rest[0] == '`' && strings.Contains(rest[n:], "`") {
		return fence{}, false
	}
	return fence{char: rest[0], n: n}, true
}

// closesFence reports whether line closes the open fence f.
func closesFence(line string, f fence) bool {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return false
	}
	n := runLength(trimmed, 0, f.char)
	return n >= f.n && strings.TrimSpace(trimmed[n:]) == ""
}

// frontmatterEnd returns the index of the line closing a frontmatter block
// that opens on the first line. Only the delimiters matter: a block whose
// YAML does not parse is still frontmatter, never table text.
func frontmatterEnd(text []string) (int, bool) {
	if len(text) < 2 || strings.TrimRight(text[0], " \t") != "---" {
		return 0, false
	}
	for i := 1; i < len(text); i++ {
		delim := strings.TrimRight(text[i], " \t")
		if delim == "---" || delim == "..." {
			return i, true
		}
	}
	return 0, false
}

// parseFrontmatter decodes the body between line 0 and end.
func parseFrontmatter(text []string, end int) *Frontmatter {
	f := &Frontmatter{First: 0, Last: end}
	if err := yaml.Unmarshal([]byte(strings.Join(text[1:end], "\n")), &f.Meta); err != nil {
		f.Meta = nil
		f.Err = fmt.Errorf("frontmatter: %w", err)
	}
	return f
}
