package buffer

import "fmt"

// Edit describes a change to a run of lines.
//
// Lines [First, First+OldCount) of the previous revision were replaced by
// NewLines. A pure insertion has OldCount == 0 and inserts before First; a
// pure deletion has an empty NewLines.
type Edit struct {
	First    int
	OldCount int
	NewLines []string
	Revision RevisionID
}

// String returns a human-readable representation of the edit.
func (e Edit) String() string {
	switch {
	case e.IsInsert():
		return fmt.Sprintf("Insert(%d, %d lines)", e.First, len(e.NewLines))
	case e.IsDelete():
		return fmt.Sprintf("Delete[%d,%d]", e.First, e.First+e.OldCount-1)
	default:
		return fmt.Sprintf("Replace[%d,%d] with %d lines", e.First, e.First+e.OldCount-1, len(e.NewLines))
	}
}

// IsInsert returns true if no existing line was touched.
func (e Edit) IsInsert() bool {
	return e.OldCount == 0 && len(e.NewLines) > 0
}

// IsDelete returns true if lines were removed and nothing inserted.
func (e Edit) IsDelete() bool {
	return e.OldCount > 0 && len(e.NewLines) == 0
}

// OldRange returns the replaced lines in the previous revision.
// The second result is false for a pure insertion.
func (e Edit) OldRange() (LineRange, bool) {
	if e.OldCount == 0 {
		return LineRange{}, false
	}
	return LineRange{First: e.First, Last: e.First + e.OldCount - 1}, true
}

// Delta returns the change in line count caused by this edit.
func (e Edit) Delta() int {
	return len(e.NewLines) - e.OldCount
}

// Observer is notified after each applied edit.
type Observer interface {
	OnEdit(e Edit)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(e Edit)

// OnEdit calls f(e).
func (f ObserverFunc) OnEdit(e Edit) {
	f(e)
}

// minimalEdit trims the lines shared by old and repl at both ends and returns
// the remaining change. ok is false when old and repl are identical.
func minimalEdit(first int, old, repl []string) (e Edit, ok bool) {
	prefix := 0
	for prefix < len(old) && prefix < len(repl) && old[prefix] == repl[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(old)-prefix && suffix < len(repl)-prefix &&
		old[len(old)-1-suffix] == repl[len(repl)-1-suffix] {
		suffix++
	}

	oldCount := len(old) - prefix - suffix
	newLines := repl[prefix : len(repl)-suffix]
	if oldCount == 0 && len(newLines) == 0 {
		return Edit{}, false
	}

	return Edit{
		First:    first + prefix,
		OldCount: oldCount,
		NewLines: append([]string(nil), newLines...),
	}, true
}
