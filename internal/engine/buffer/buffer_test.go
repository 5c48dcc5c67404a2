package buffer

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestNewBuffer(t *testing.T) {
	b := NewBuffer()

	if !b.IsEmpty() {
		t.Error("new buffer should be empty")
	}
	if b.LineCount() != 1 {
		t.Errorf("expected 1 line, got %d", b.LineCount())
	}
	if line, ok := b.CursorLine(); !ok || line != 0 {
		t.Errorf("CursorLine() = %d, %v, expected 0, true", line, ok)
	}
}

func TestNewBufferFromStringMultiline(t *testing.T) {
	text := "line1\nline2\nline3\n"
	b := NewBufferFromString(text)

	if b.LineCount() != 4 {
		t.Errorf("expected 4 lines, got %d", b.LineCount())
	}
	if got, _ := b.LineText(1); got != "line2" {
		t.Errorf("expected line2, got %q", got)
	}
	if got, ok := b.LineText(3); !ok || got != "" {
		t.Errorf("LineText(3) = %q, %v, expected trailing empty line", got, ok)
	}
	if _, ok := b.LineText(4); ok {
		t.Error("LineText(4) should report a missing line")
	}
	if b.Text() != text {
		t.Errorf("Text() = %q, expected %q", b.Text(), text)
	}
}

func TestNewBufferFromReaderCRLF(t *testing.T) {
	b, err := NewBufferFromReader(strings.NewReader("a\r\nb\r\n"))
	if err != nil {
		t.Fatalf("NewBufferFromReader: %v", err)
	}
	if b.Text() != "a\nb\n" {
		t.Errorf("Text() = %q", b.Text())
	}
	if b.LineEnding() != LineEndingCRLF {
		t.Errorf("LineEnding() = %v, expected CRLF", b.LineEnding())
	}
	if b.Content() != "a\r\nb\r\n" {
		t.Errorf("Content() = %q", b.Content())
	}
}

func TestReplaceLines(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		first, last int
		lines       []string
		want        string
		wantErr     error
	}{
		{"replace middle", "a\nb\nc", 1, 1, []string{"x", "y"}, "a\nx\ny\nc", nil},
		{"insert before", "a\nb", 1, 0, []string{"x"}, "a\nx\nb", nil},
		{"append", "a\nb", 2, 1, []string{"c"}, "a\nb\nc", nil},
		{"delete", "a\nb\nc", 0, 1, nil, "c", nil},
		{"delete all", "a", 0, 0, nil, "", nil},
		{"bad range", "a\nb", 1, 2, []string{"x"}, "a\nb", ErrRangeInvalid},
		{"negative", "a", -1, 0, nil, "a", ErrRangeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBufferFromString(tt.text)
			err := b.ReplaceLines(tt.first, tt.last, tt.lines)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReplaceLines() error = %v, expected %v", err, tt.wantErr)
			}
			if b.Text() != tt.want {
				t.Errorf("Text() = %q, expected %q", b.Text(), tt.want)
			}
		})
	}
}

func TestReplaceLinesIdenticalIsNoOp(t *testing.T) {
	b := NewBufferFromString("a\nb")
	rev := b.Revision()
	var edits int
	b.AddObserver(ObserverFunc(func(Edit) { edits++ }))

	if err := b.ReplaceLines(0, 1, []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if edits != 0 {
		t.Errorf("observer called %d times, expected 0", edits)
	}
	if b.Revision() != rev {
		t.Error("revision should not change for an identical replacement")
	}
}

func TestInsertTextReportsMinimalEdit(t *testing.T) {
	b := NewBufferFromString("para\n\nmore", WithCursor(Point{Line: 1}))

	var got []Edit
	b.AddObserver(ObserverFunc(func(e Edit) { got = append(got, e) }))

	if err := b.InsertText(b.Cursor(), "| | |\n| | |\n"); err != nil {
		t.Fatal(err)
	}

	if b.Text() != "para\n| | |\n| | |\n\nmore" {
		t.Errorf("Text() = %q", b.Text())
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(got))
	}
	e := got[0]
	if !e.IsInsert() || e.First != 1 || len(e.NewLines) != 2 {
		t.Errorf("edit = %v, expected Insert(1, 2 lines)", e)
	}
	if e.Revision != b.Revision() {
		t.Error("edit should carry the new revision")
	}
	if c := b.Cursor(); c != (Point{Line: 3, Column: 0}) {
		t.Errorf("Cursor() = %v, expected (3:0)", c)
	}
}

func TestInsertTextWithinLine(t *testing.T) {
	b := NewBufferFromString("hello world")
	if err := b.InsertText(Point{Line: 0, Column: 5}, ","); err != nil {
		t.Fatal(err)
	}
	if b.Text() != "hello, world" {
		t.Errorf("Text() = %q", b.Text())
	}
	if err := b.InsertText(Point{Line: 0, Column: 99}, "x"); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("expected ErrOffsetOutOfRange, got %v", err)
	}
}

func TestCursorShiftsWithEdits(t *testing.T) {
	b := NewBufferFromString("a\nb\nc\nd", WithCursor(Point{Line: 3, Column: 1}))

	if err := b.ReplaceLines(0, 0, []string{"x", "y", "z"}); err != nil {
		t.Fatal(err)
	}
	if c := b.Cursor(); c.Line != 5 {
		t.Errorf("cursor line = %d, expected 5", c.Line)
	}

	if err := b.ReplaceLines(4, 5, []string{"q"}); err != nil {
		t.Fatal(err)
	}
	if c := b.Cursor(); c.Line != 4 || c.Column != 0 {
		t.Errorf("cursor = %v, expected (4:0)", c)
	}
}

func TestVisibleRange(t *testing.T) {
	b := NewBufferFromString("0\n1\n2\n3\n4")

	if r := b.VisibleRange(); r != (LineRange{First: 0, Last: 4}) {
		t.Errorf("VisibleRange() = %v, expected whole document", r)
	}

	b.SetViewport(1, 2)
	if r := b.VisibleRange(); r != (LineRange{First: 1, Last: 2}) {
		t.Errorf("VisibleRange() = %v, expected [1,2]", r)
	}

	b.SetViewport(3, 10)
	if r := b.VisibleRange(); r != (LineRange{First: 3, Last: 4}) {
		t.Errorf("VisibleRange() = %v, expected [3,4]", r)
	}
}

func TestWithoutCursor(t *testing.T) {
	b := NewBufferFromString("a", WithoutCursor())
	if _, ok := b.CursorLine(); ok {
		t.Error("CursorLine() should report no cursor")
	}
	b.SetCursor(Point{Line: 7})
	if line, ok := b.CursorLine(); !ok || line != 0 {
		t.Errorf("CursorLine() = %d, %v, expected clamped 0, true", line, ok)
	}
}

func TestLineRange(t *testing.T) {
	r := LineRange{First: 2, Last: 4}

	if r.Len() != 3 {
		t.Errorf("Len() = %d, expected 3", r.Len())
	}
	if !r.Contains(2) || !r.Contains(4) || r.Contains(5) {
		t.Error("Contains should be inclusive on both ends")
	}
	if !r.Overlaps(LineRange{First: 4, Last: 9}) {
		t.Error("ranges sharing line 4 should overlap")
	}
	if r.Overlaps(LineRange{First: 5, Last: 9}) {
		t.Error("adjacent ranges should not overlap")
	}
}

func TestObserverRemoval(t *testing.T) {
	b := NewBufferFromString("a")
	calls := 0
	remove := b.AddObserver(ObserverFunc(func(Edit) { calls++ }))

	_ = b.ReplaceLines(0, 0, []string{"b"})
	remove()
	_ = b.ReplaceLines(0, 0, []string{"c"})

	if calls != 1 {
		t.Errorf("observer called %d times, expected 1", calls)
	}
}

func TestSnapshotIsStable(t *testing.T) {
	b := NewBufferFromString("a\nb")
	snap := b.Snapshot()

	_ = b.ReplaceLines(0, 1, []string{"x"})

	if snap.Text() != "a\nb" {
		t.Errorf("snapshot changed: %q", snap.Text())
	}
	if snap.LineCount() != 2 {
		t.Errorf("snapshot LineCount() = %d", snap.LineCount())
	}
}

func TestConcurrentReads(t *testing.T) {
	b := NewBufferFromString(strings.Repeat("line\n", 100))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = b.LineText(j)
				_ = b.VisibleRange()
			}
		}()
	}
	wg.Wait()
}
