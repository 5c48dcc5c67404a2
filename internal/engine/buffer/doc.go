// Package buffer provides the line-oriented text buffer that hosts a Markdown
// document while tables are detected and rendered over it.
//
// The buffer package provides:
//
//   - Thread-safe read/write access via sync.RWMutex
//   - Line access with explicit "no such line" results
//   - Line-range replacement and point insertion
//   - A primary cursor and a visible viewport
//   - Edit notifications so range bindings can follow the text
//   - Read-only snapshots for concurrent access
//
// Basic usage:
//
//	buf := buffer.NewBufferFromString("| A | B |\n| - | - |\n")
//
//	// Replace lines 0..1 with new content
//	buf.ReplaceLines(0, 1, []string{"| x | y |", "| - | - |"})
//
//	// Insert text at the cursor
//	buf.InsertText(buf.Cursor(), "| | |\n| | |\n")
//
// Line Model:
//
// Text is split on "\n" without dropping the final element, so a document
// ending in a newline has a trailing empty line. Text() joins the lines back
// with "\n" and therefore reproduces the input byte for byte (after line
// ending normalization).
//
// Edits:
//
// Every mutation is reduced to the smallest run of changed lines and reported
// to observers as an Edit. Observers run synchronously on the goroutine that
// made the change, after the buffer lock has been released.
package buffer
