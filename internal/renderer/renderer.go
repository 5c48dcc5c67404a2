package renderer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/dshills/tablestorm/internal/engine/buffer"
	"github.com/dshills/tablestorm/internal/engine/syntax"
	"github.com/dshills/tablestorm/internal/manager"
)

// Source is the session a Renderer displays.
type Source interface {
	Buffer() *buffer.Buffer
	Refresh(ctx context.Context) (manager.Result, error)
	InstanceAt(line int) (*manager.Instance, bool)
	Range(id string) (buffer.LineRange, bool)
}

// Styles used for the document chrome.
var (
	StyleText   = tcell.StyleDefault
	StyleGutter = tcell.StyleDefault.Dim(true)
	StyleStatus = tcell.StyleDefault.Reverse(true)
)

// Options configures a Renderer.
type Options struct {
	// Container is the name mouse events from this renderer carry. Widgets
	// scoped to another container ignore them. When empty the renderer
	// follows the source's current container, so a reloaded config applies
	// to the next click.
	Container string

	ShowLineNumbers bool

	// TabWidth is the number of columns a tab expands to.
	TabWidth int
}

// DefaultOptions returns default renderer options.
func DefaultOptions() Options {
	return Options{
		ShowLineNumbers: true,
		TabWidth:        4,
	}
}

// Option modifies Options.
type Option func(*Options)

// WithContainer sets the container name.
func WithContainer(name string) Option {
	return func(o *Options) { o.Container = name }
}

// DefaultContainer is used when neither the options nor the source name a
// container.
const DefaultContainer = "#editor"

// containerSource is implemented by sources whose container can change
// while the renderer runs.
type containerSource interface {
	Container() string
}

// frontmatterSource is implemented by sources that know the document's
// metadata block.
type frontmatterSource interface {
	Frontmatter() (syntax.Frontmatter, bool)
}

// WithLineNumbers toggles the line number gutter.
func WithLineNumbers(show bool) Option {
	return func(o *Options) { o.ShowLineNumbers = show }
}

// Renderer draws one document and routes input to its widgets.
type Renderer struct {
	screen tcell.Screen
	src    Source
	opts   Options

	top     int
	focused *manager.Instance
	drawn   []*manager.Instance // widgets drawn in the last frame
	status  string
	frames  uint64
}

// New creates a renderer for src drawing into screen.
func New(screen tcell.Screen, src Source, opts ...Option) *Renderer {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.TabWidth <= 0 {
		o.TabWidth = 4
	}
	return &Renderer{screen: screen, src: src, opts: o}
}

// Top returns the first document line on screen.
func (r *Renderer) Top() int {
	return r.top
}

// Focused returns the widget instance that has editing focus, if any.
func (r *Renderer) Focused() (*manager.Instance, bool) {
	return r.focused, r.focused != nil
}

// FrameCount returns the number of frames drawn.
func (r *Renderer) FrameCount() uint64 {
	return r.frames
}

// SetStatus sets the message shown on the status line.
func (r *Renderer) SetStatus(msg string) {
	r.status = msg
}

// container returns the name mouse events are tagged with.
func (r *Renderer) container() string {
	if r.opts.Container != "" {
		return r.opts.Container
	}
	if cs, ok := r.src.(containerSource); ok {
		if name := cs.Container(); name != "" {
			return name
		}
	}
	return DefaultContainer
}

// textHeight is the number of screen rows available for the document.
func (r *Renderer) textHeight() int {
	_, h := r.screen.Size()
	return max(h-1, 0)
}

// ScrollTo makes line the first line on screen.
func (r *Renderer) ScrollTo(line int) {
	r.top = min(max(line, 0), max(r.src.Buffer().LineCount()-1, 0))
}

// Scroll moves the view by delta lines.
func (r *Renderer) Scroll(delta int) {
	r.ScrollTo(r.top + delta)
}

// Draw renders one frame. Tables that came into view are rendered before
// drawing.
func (r *Renderer) Draw(ctx context.Context) error {
	buf := r.src.Buffer()
	height := r.textHeight()
	buf.SetViewport(r.top, height)

	res, err := r.src.Refresh(ctx)
	if err != nil {
		return err
	}
	if len(res.Failed) > 0 {
		r.status = fmt.Sprintf("%d table(s) could not be rendered", len(res.Failed))
	}
	if r.focused != nil {
		if _, ok := r.src.Range(r.focused.ID); !ok {
			r.focused = nil
		}
	}

	r.screen.Clear()
	r.drawn = r.drawn[:0]

	gutter := r.gutterWidth(buf.LineCount())
	line, y := r.top, 0
	for y < height && line < buf.LineCount() {
		if inst, ok := r.src.InstanceAt(line); ok {
			rng, _ := r.src.Range(inst.ID)
			r.drawGutter(line, y, gutter)
			inst.Widget.Draw(r.screen, gutter, y)
			r.drawn = append(r.drawn, inst)
			y += inst.Widget.Height()
			line = rng.Last + 1
			continue
		}
		text, _ := buf.LineText(line)
		r.drawGutter(line, y, gutter)
		r.drawText(gutter, y, text)
		y++
		line++
	}

	r.drawStatus(buf.LineCount())
	r.screen.Show()
	r.frames++
	return nil
}

func (r *Renderer) gutterWidth(lines int) int {
	if !r.opts.ShowLineNumbers {
		return 0
	}
	return len(strconv.Itoa(max(lines, 1))) + 1
}

func (r *Renderer) drawGutter(line, y, width int) {
	if width == 0 {
		return
	}
	num := strconv.Itoa(line + 1)
	r.put(width-1-len(num), y, num, StyleGutter)
}

// drawText draws a document line with tabs expanded, clipped to the screen.
func (r *Renderer) drawText(x, y int, text string) {
	w, _ := r.screen.Size()
	col := x
	for _, ch := range text {
		if col >= w {
			return
		}
		if ch == '\t' {
			next := x + ((col-x)/r.opts.TabWidth+1)*r.opts.TabWidth
			for ; col < next && col < w; col++ {
				r.screen.SetContent(col, y, ' ', nil, StyleText)
			}
			continue
		}
		r.screen.SetContent(col, y, ch, nil, StyleText)
		col += max(runewidth.RuneWidth(ch), 1)
	}
}

func (r *Renderer) drawStatus(lines int) {
	w, h := r.screen.Size()
	if h == 0 {
		return
	}
	y := h - 1
	for x := 0; x < w; x++ {
		r.screen.SetContent(x, y, ' ', nil, StyleStatus)
	}

	right := fmt.Sprintf("%d tables  %d/%d", len(r.drawn), min(r.top+1, lines), lines)
	left := r.status
	if fs, ok := r.src.(frontmatterSource); ok {
		if f, ok := fs.Frontmatter(); ok && !f.Valid() {
			left = strings.TrimSpace(left + "  [invalid frontmatter]")
		}
	}
	if r.focused != nil {
		left = fmt.Sprintf("editing %s table (Esc to finish)", r.focused.Dialect)
	}
	r.put(1, y, left, StyleStatus)
	r.put(w-runewidth.StringWidth(right)-1, y, right, StyleStatus)
}

func (r *Renderer) put(x, y int, s string, style tcell.Style) {
	for _, ch := range s {
		r.screen.SetContent(x, y, ch, nil, style)
		x += max(runewidth.RuneWidth(ch), 1)
	}
}

// HandleEvent applies one input event. It returns true when the user asked
// to quit.
func (r *Renderer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		r.screen.Sync()
	case *tcell.EventKey:
		return r.handleKey(ev)
	case *tcell.EventMouse:
		r.handleMouse(ev)
	}
	return false
}

func (r *Renderer) handleKey(ev *tcell.EventKey) bool {
	if r.focused != nil {
		inst := r.focused
		inst.Widget.HandleKey(ev)
		if !inst.Widget.Focused() {
			r.focused = nil
		}
		return false
	}

	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyCtrlQ:
		return true
	case tcell.KeyUp:
		r.Scroll(-1)
	case tcell.KeyDown:
		r.Scroll(1)
	case tcell.KeyPgUp:
		r.Scroll(-r.textHeight())
	case tcell.KeyPgDn:
		r.Scroll(r.textHeight())
	case tcell.KeyHome:
		r.ScrollTo(0)
	case tcell.KeyEnd:
		r.ScrollTo(r.src.Buffer().LineCount() - 1)
	case tcell.KeyTab:
		if len(r.drawn) > 0 {
			r.focus(r.drawn[0])
		}
	case tcell.KeyRune:
		if ev.Rune() == 'q' {
			return true
		}
	}
	return false
}

func (r *Renderer) handleMouse(ev *tcell.EventMouse) {
	switch {
	case ev.Buttons()&tcell.WheelUp != 0:
		r.Scroll(-3)
		return
	case ev.Buttons()&tcell.WheelDown != 0:
		r.Scroll(3)
		return
	}

	if ev.Buttons()&tcell.Button1 == 0 {
		return
	}

	// A click outside the focused widget writes it back before another
	// widget can take focus.
	x, y := ev.Position()
	if r.focused != nil && !r.focused.Widget.Contains(x, y) {
		r.Blur()
	}
	for _, inst := range r.drawn {
		if _, live := r.src.Range(inst.ID); !live {
			continue
		}
		if inst.Widget.HandleMouse(ev, r.container()) && inst.Widget.Focused() {
			r.focused = inst
			return
		}
	}
	if r.focused != nil && !r.focused.Widget.Focused() {
		r.focused = nil
	}
}

func (r *Renderer) focus(inst *manager.Instance) {
	if r.focused != nil && r.focused != inst {
		r.focused.Widget.Blur()
	}
	r.focused = inst
	inst.Widget.Focus()
}

// Blur ends editing on the focused widget, writing its table back.
func (r *Renderer) Blur() {
	if r.focused == nil {
		return
	}
	inst := r.focused
	r.focused = nil
	inst.Widget.Blur()
}

// Run draws and handles events until the user quits, ctx is done or the
// screen is finalized. The focused widget is written back before returning.
func (r *Renderer) Run(ctx context.Context) error {
	defer r.Blur()

	events := make(chan tcell.Event)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(events)
		for {
			ev := r.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	for {
		if err := r.Draw(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if r.HandleEvent(ev) {
				return nil
			}
		}
	}
}

// Snapshot returns the screen contents as text, one string per row with
// trailing spaces trimmed.
func Snapshot(screen tcell.Screen) []string {
	w, h := screen.Size()
	rows := make([]string, h)
	for y := 0; y < h; y++ {
		var sb strings.Builder
		for x := 0; x < w; x++ {
			ch, _, _, width := screen.GetContent(x, y)
			if ch == 0 {
				ch = ' '
			}
			sb.WriteRune(ch)
			if width > 1 {
				x += width - 1
			}
		}
		rows[y] = strings.TrimRight(sb.String(), " ")
	}
	return rows
}
