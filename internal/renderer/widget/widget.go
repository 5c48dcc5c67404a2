// Package widget draws a structured table as an editable box in a tcell
// screen. A Widget is the rendering handle bound over a table's source lines.
package widget

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/dshills/tablestorm/internal/table"
)

// RenderConfig configures a widget.
type RenderConfig struct {
	// Container names the pane the widget lives in. Mouse events are only
	// honored when they come from this container.
	Container string

	// OnBlur is called with the table when editing focus leaves the widget.
	OnBlur func(*table.Table)
}

// Styles used when drawing.
var (
	StyleBorder = tcell.StyleDefault.Dim(true)
	StyleHeader = tcell.StyleDefault.Bold(true)
	StyleCell   = tcell.StyleDefault
	StyleActive = tcell.StyleDefault.Reverse(true)
)

// headerRow is the row index of the header in cursor coordinates.
const headerRow = -1

// Widget is an editable table rendering.
type Widget struct {
	tbl *table.Table
	cfg RenderConfig

	focused bool

	// row and col locate the active cell. row is headerRow on the header.
	row, col int

	// origin of the last Draw, for mouse hit testing.
	x, y  int
	drawn bool
}

// New creates a widget for tbl.
func New(tbl *table.Table, cfg RenderConfig) *Widget {
	w := &Widget{tbl: tbl, cfg: cfg}
	if !tbl.Headerless() {
		w.row = headerRow
	}
	return w
}

// Table returns the table being edited.
func (w *Widget) Table() *table.Table {
	return w.tbl
}

// Container returns the container the widget is scoped to.
func (w *Widget) Container() string {
	return w.cfg.Container
}

// SetContainer moves the widget to another container.
func (w *Widget) SetContainer(name string) {
	w.cfg.Container = name
}

// Height returns the number of screen rows the widget occupies.
func (w *Widget) Height() int {
	h := w.tbl.Rows() + 2
	if !w.tbl.Headerless() {
		h += 2
	}
	return h
}

// Width returns the number of screen columns the widget occupies.
func (w *Widget) Width() int {
	n := 1
	for _, cw := range w.widths() {
		n += cw + 3
	}
	return n
}

// widths returns the display width of every column.
func (w *Widget) widths() []int {
	widths := make([]int, w.tbl.Columns())
	for c := range widths {
		widths[c] = 1
		if v, ok := w.tbl.HeaderCell(c); ok {
			widths[c] = max(widths[c], runewidth.StringWidth(v))
		}
		for r := 0; r < w.tbl.Rows(); r++ {
			v, _ := w.tbl.Cell(r, c)
			widths[c] = max(widths[c], runewidth.StringWidth(v))
		}
	}
	return widths
}

// Focused returns true while the widget has editing focus.
func (w *Widget) Focused() bool {
	return w.focused
}

// Active returns the active cell. row is -1 on the header.
func (w *Widget) Active() (row, col int) {
	return w.row, w.col
}

// Focus gives the widget editing focus.
func (w *Widget) Focus() {
	w.focused = true
}

// Blur removes editing focus and reports the table through OnBlur.
func (w *Widget) Blur() {
	if !w.focused {
		return
	}
	w.focused = false
	if w.cfg.OnBlur != nil {
		w.cfg.OnBlur(w.tbl)
	}
}

// Draw renders the widget with its top left corner at (x, y).
func (w *Widget) Draw(s tcell.Screen, x, y int) {
	w.x, w.y, w.drawn = x, y, true
	widths := w.widths()

	line := y
	w.drawRule(s, x, line, widths, '┌', '┬', '┐')
	line++

	if !w.tbl.Headerless() {
		w.drawRow(s, x, line, widths, headerRow)
		line++
		w.drawRule(s, x, line, widths, '├', '┼', '┤')
		line++
	}
	for r := 0; r < w.tbl.Rows(); r++ {
		w.drawRow(s, x, line, widths, r)
		line++
	}
	w.drawRule(s, x, line, widths, '└', '┴', '┘')
}

func (w *Widget) drawRule(s tcell.Screen, x, y int, widths []int, left, mid, right rune) {
	s.SetContent(x, y, left, nil, StyleBorder)
	x++
	for c, cw := range widths {
		for i := 0; i < cw+2; i++ {
			s.SetContent(x, y, '─', nil, StyleBorder)
			x++
		}
		if c < len(widths)-1 {
			s.SetContent(x, y, mid, nil, StyleBorder)
		} else {
			s.SetContent(x, y, right, nil, StyleBorder)
		}
		x++
	}
}

func (w *Widget) drawRow(s tcell.Screen, x, y int, widths []int, row int) {
	s.SetContent(x, y, '│', nil, StyleBorder)
	x++
	for c, cw := range widths {
		text, style := w.cellText(row, c)
		if w.focused && row == w.row && c == w.col {
			style = StyleActive
		}

		s.SetContent(x, y, ' ', nil, style)
		col := x + 1
		for _, r := range runewidth.FillRight(text, cw) {
			s.SetContent(col, y, r, nil, style)
			col += max(runewidth.RuneWidth(r), 1)
		}
		s.SetContent(x+cw+1, y, ' ', nil, style)

		x += cw + 2
		s.SetContent(x, y, '│', nil, StyleBorder)
		x++
	}
}

func (w *Widget) cellText(row, col int) (string, tcell.Style) {
	if row == headerRow {
		v, _ := w.tbl.HeaderCell(col)
		return v, StyleHeader
	}
	v, _ := w.tbl.Cell(row, col)
	return v, StyleCell
}

// firstRow is the topmost row the cursor can reach.
func (w *Widget) firstRow() int {
	if w.tbl.Headerless() {
		return 0
	}
	return headerRow
}

// HandleKey applies a key press while focused. It returns true if the
// key was consumed.
func (w *Widget) HandleKey(ev *tcell.EventKey) bool {
	if !w.focused {
		return false
	}

	switch ev.Key() {
	case tcell.KeyEscape:
		w.Blur()
	case tcell.KeyLeft:
		w.move(0, -1)
	case tcell.KeyRight:
		w.move(0, 1)
	case tcell.KeyUp:
		w.move(-1, 0)
	case tcell.KeyDown:
		w.move(1, 0)
	case tcell.KeyTab:
		w.next()
	case tcell.KeyBacktab:
		w.prev()
	case tcell.KeyEnter:
		if w.row == w.tbl.Rows()-1 {
			w.tbl.AppendRow()
		}
		w.move(1, 0)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		v, _ := w.active()
		if r := []rune(v); len(r) > 0 {
			w.setActive(string(r[:len(r)-1]))
		}
	case tcell.KeyRune:
		v, _ := w.active()
		w.setActive(v + string(ev.Rune()))
	default:
		return false
	}
	return true
}

func (w *Widget) active() (string, bool) {
	if w.row == headerRow {
		return w.tbl.HeaderCell(w.col)
	}
	return w.tbl.Cell(w.row, w.col)
}

func (w *Widget) setActive(v string) {
	if w.row == headerRow {
		_ = w.tbl.SetHeaderCell(w.col, v)
		return
	}
	_ = w.tbl.SetCell(w.row, w.col, v)
}

func (w *Widget) move(dr, dc int) {
	w.row = min(max(w.row+dr, w.firstRow()), w.tbl.Rows()-1)
	w.col = min(max(w.col+dc, 0), w.tbl.Columns()-1)
}

func (w *Widget) next() {
	if w.col < w.tbl.Columns()-1 {
		w.col++
		return
	}
	if w.row < w.tbl.Rows()-1 {
		w.row++
		w.col = 0
	}
}

func (w *Widget) prev() {
	if w.col > 0 {
		w.col--
		return
	}
	if w.row > w.firstRow() {
		w.row--
		w.col = w.tbl.Columns() - 1
	}
}

// HandleMouse applies a click from container. A click on a cell focuses the
// widget and selects the cell; a click elsewhere blurs it. It returns true
// if the event was consumed.
func (w *Widget) HandleMouse(ev *tcell.EventMouse, container string) bool {
	if container != w.cfg.Container || ev.Buttons()&tcell.Button1 == 0 || !w.drawn {
		return false
	}

	mx, my := ev.Position()
	row, col, ok := w.cellAt(mx, my)
	if !ok {
		if w.focused {
			w.Blur()
			return true
		}
		return false
	}
	w.row, w.col = row, col
	w.Focus()
	return true
}

// Contains returns true if (x, y) lies inside the last drawn widget.
func (w *Widget) Contains(x, y int) bool {
	return w.drawn && x >= w.x && x < w.x+w.Width() && y >= w.y && y < w.y+w.Height()
}

// cellAt maps a screen position to a cell of the last drawn widget.
func (w *Widget) cellAt(x, y int) (row, col int, ok bool) {
	if !w.Contains(x, y) {
		return 0, 0, false
	}

	line := y - w.y - 1
	if !w.tbl.Headerless() {
		switch {
		case line == 0:
			row = headerRow
		case line == 1:
			return 0, 0, false
		default:
			row = line - 2
		}
	} else {
		row = line
	}
	if row >= w.tbl.Rows() || line < 0 {
		return 0, 0, false
	}

	left := w.x + 1
	for c, cw := range w.widths() {
		if x >= left && x < left+cw+2 {
			return row, c, true
		}
		left += cw + 3
	}
	return 0, 0, false
}
