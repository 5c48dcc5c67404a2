package command

import (
	"github.com/dshills/tablestorm/internal/engine/buffer"
)

// InsertTableID is the ID of the blank table command.
const InsertTableID = "table.insert"

// BlankTable is the text inserted by the blank table command: a 2x2 pipe
// table with empty cells.
const BlankTable = "| | |\n| | |\n"

// Inserter is the editor surface the insert command writes to.
type Inserter interface {
	Cursor() buffer.Point
	CursorLine() (int, bool)
	InsertText(p buffer.Point, text string) error
}

// NewInsertTable returns the command that inserts BlankTable at the
// cursor. It never runs table detection; the next refresh does.
func NewInsertTable(ed Inserter) *Command {
	return &Command{
		ID:          InsertTableID,
		Title:       "Insert Table",
		Description: "Insert a blank 2x2 table at the cursor",
		Source:      "core",
		Handler: func(map[string]any) error {
			if _, ok := ed.CursorLine(); !ok {
				return ErrNoCursor
			}
			return ed.InsertText(ed.Cursor(), BlankTable)
		},
	}
}
