// Package renderer draws a document into a tcell screen with its rendered
// tables shown as widgets.
//
// Each frame the renderer tells the buffer which lines are on screen, asks
// the session to refresh so newly visible tables are rendered, then walks the
// visible lines. A line covered by a live binding is replaced by the bound
// widget; every other line is drawn as plain text.
//
//	┌─────────────────────────────────────────┐
//	│ gutter │ text line                       │
//	│ gutter │ ┌──────┬─────┐  (widget)        │
//	│        │ │ Name │ Age │                  │
//	│        │ └──────┴─────┘                  │
//	├─────────────────────────────────────────┤
//	│ status line                             │
//	└─────────────────────────────────────────┘
//
// Usage:
//
//	screen, _ := tcell.NewScreen()
//	_ = screen.Init()
//	r := renderer.New(screen, session)
//	err := r.Run(ctx)
package renderer
