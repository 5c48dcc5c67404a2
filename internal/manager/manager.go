// Package manager turns detected table spans into rendered instances and
// writes edited tables back into the document.
//
// A Manager owns the registry of live instances for one editing session. On
// every Refresh it prunes instances whose bindings were cleared, runs one
// detection pass over the visible lines and renders each accepted span:
// parse, build the widget, bind the span to it and register it. When a
// widget loses focus it publishes a topic.TableBlur message; the manager
// answers it by serializing the table over its bound lines, clearing the
// binding and dropping the instance. The next Refresh detects the new text
// from scratch.
package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/tablestorm/internal/detect"
	"github.com/dshills/tablestorm/internal/engine/buffer"
	"github.com/dshills/tablestorm/internal/event"
	"github.com/dshills/tablestorm/internal/event/topic"
	"github.com/dshills/tablestorm/internal/renderer/overlay"
	"github.com/dshills/tablestorm/internal/renderer/widget"
	"github.com/dshills/tablestorm/internal/table"
)

// Document is the host text the manager reads and writes.
type Document interface {
	detect.Lines
	detect.Cursor
	Lines(r buffer.LineRange) []string
	ReplaceLines(first, last int, lines []string) error
	VisibleRange() buffer.LineRange
}

// Bindings creates and resolves line range bindings.
type Bindings interface {
	detect.Bindings
	Bind(rng buffer.LineRange, h overlay.Handle) (string, error)
	Resolve(id string) (buffer.LineRange, bool)
	Clear(id string) bool
}

// Logger receives manager diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

// BlurPayload is the write-back request a widget publishes on losing focus.
type BlurPayload struct {
	InstanceID string
}

// RenderedPayload announces a new instance.
type RenderedPayload struct {
	InstanceID string
	Dialect    table.Dialect
	Range      buffer.LineRange
}

// WrittenPayload announces a completed write-back.
type WrittenPayload struct {
	InstanceID string
	Range      buffer.LineRange
	Lines      int
}

// Stats counts manager activity since creation.
type Stats struct {
	Scans              int
	Rendered           int
	ConstructionErrors int
	WrittenBack        int
	Stale              int
	Pruned             int
}

// Result summarizes one Refresh.
type Result struct {
	Rendered []*Instance
	Failed   []*ConstructionError
	Pruned   int
}

// Manager renders tables for one document.
// It runs on the host's event loop and is not safe for concurrent use.
type Manager struct {
	doc      Document
	modes    detect.Modes
	bindings Bindings
	bus      *event.Bus
	sub      *event.Subscription

	detectOpts []detect.Option
	detector   *detect.Detector
	registry   *Registry
	container  string
	log        Logger

	stats  Stats
	closed bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithContainer sets the container every widget is scoped to.
func WithContainer(c string) Option {
	return func(m *Manager) {
		m.container = c
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithDetectOptions passes options to the detector.
func WithDetectOptions(opts ...detect.Option) Option {
	return func(m *Manager) {
		m.detectOpts = append(m.detectOpts, opts...)
	}
}

// New creates a manager and subscribes it to write-back requests on bus.
// A nil bus gives the manager a private one.
func New(doc Document, modes detect.Modes, bindings Bindings, bus *event.Bus, opts ...Option) (*Manager, error) {
	if bus == nil {
		bus = event.NewBus()
	}
	m := &Manager{
		doc:      doc,
		modes:    modes,
		bindings: bindings,
		bus:      bus,
		registry: NewRegistry(),
		log:      nopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.detector = m.newDetector()

	sub, err := event.Subscribe(bus, topic.TableBlur, func(_ context.Context, ev event.Event[BlurPayload]) error {
		return m.Release(ev.Payload.InstanceID)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", topic.TableBlur, err)
	}
	m.sub = sub
	return m, nil
}

func (m *Manager) newDetector() *detect.Detector {
	opts := append([]detect.Option{detect.WithLogger(m.log)}, m.detectOpts...)
	return detect.New(m.doc, m.modes, opts...)
}

// Configure replaces the detector options and widget container used by
// later passes. Live instances keep their widgets but move to the new
// container.
func (m *Manager) Configure(container string, opts ...detect.Option) {
	if container != m.container {
		for _, inst := range m.registry.All() {
			inst.Widget.SetContainer(container)
		}
	}
	m.container = container
	m.detectOpts = opts
	m.detector = m.newDetector()
}

// Close unsubscribes the manager from the bus.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.bus.Unsubscribe(m.sub)
}

// Bus returns the bus write-back requests travel on.
func (m *Manager) Bus() *event.Bus {
	return m.bus
}

// Stats returns the activity counters.
func (m *Manager) Stats() Stats {
	return m.stats
}

// Instances returns the live instances in the order they were rendered.
func (m *Manager) Instances() []*Instance {
	return m.registry.All()
}

// Instance returns the live instance with the given ID.
func (m *Manager) Instance(id string) (*Instance, bool) {
	return m.registry.Get(id)
}

// InstanceAt returns the instance whose binding covers line.
func (m *Manager) InstanceAt(line int) (*Instance, bool) {
	for _, inst := range m.registry.All() {
		if rng, ok := m.bindings.Resolve(inst.BindingID); ok && rng.Contains(line) {
			return inst, true
		}
	}
	return nil, false
}

// Range returns the lines currently replaced by the instance's widget. The
// second result is false once the binding has cleared.
func (m *Manager) Range(id string) (buffer.LineRange, bool) {
	inst, ok := m.registry.Get(id)
	if !ok {
		return buffer.LineRange{}, false
	}
	return m.bindings.Resolve(inst.BindingID)
}

// Construct parses text as a table of dialect d and builds its widget.
// Nothing is bound or registered.
func (m *Manager) Construct(text string, d table.Dialect, cfg widget.RenderConfig) (*Instance, error) {
	tbl, err := table.Parse(text, d)
	if err != nil {
		return nil, err
	}
	return &Instance{
		ID:      uuid.NewString(),
		Dialect: d,
		Source:  text,
		Table:   tbl,
		Widget:  widget.New(tbl, cfg),
	}, nil
}

// Refresh drops instances whose bindings are gone, then renders every table
// detected in the visible lines. Construction failures are logged and do
// not stop the pass.
func (m *Manager) Refresh(ctx context.Context) (Result, error) {
	if m.closed {
		return Result{}, ErrClosed
	}

	var res Result
	res.Pruned = m.prune()
	m.stats.Scans++

	for s := range m.detector.Scan(m.doc.VisibleRange(), m.doc, m.bindings) {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		inst, err := m.render(ctx, s)
		if err != nil {
			cerr := &ConstructionError{Range: s.LineRange, Dialect: s.Dialect, Err: err}
			m.stats.ConstructionErrors++
			m.log.Warn("table construction failed: first=%d last=%d dialect=%s error=%v",
				s.First, s.Last, s.Dialect, err)
			m.publish(ctx, event.NewEvent(topic.TableRenderFailed, cerr, "manager"))
			res.Failed = append(res.Failed, cerr)
			continue
		}
		res.Rendered = append(res.Rendered, inst)
	}
	return res, nil
}

// render builds, binds and registers the table in span s.
func (m *Manager) render(ctx context.Context, s detect.Span) (*Instance, error) {
	text := strings.Join(m.doc.Lines(s.LineRange), "\n")

	// id is assigned before the widget can be focused, let alone blurred.
	var id string
	cfg := widget.RenderConfig{
		Container: m.container,
		OnBlur: func(*table.Table) {
			m.requestWriteBack(id)
		},
	}

	inst, err := m.Construct(text, s.Dialect, cfg)
	if err != nil {
		return nil, err
	}
	id = inst.ID

	bindingID, err := m.bindings.Bind(s.LineRange, inst.Widget)
	if err != nil {
		return nil, fmt.Errorf("bind: %w", err)
	}
	inst.BindingID = bindingID
	inst.Range = s.LineRange

	if err := m.registry.Add(inst); err != nil {
		m.bindings.Clear(bindingID)
		return nil, err
	}

	m.stats.Rendered++
	m.log.Debug("rendered %s as %s", s, inst.ID)
	m.publish(ctx, event.NewEvent(topic.TableRendered, RenderedPayload{
		InstanceID: inst.ID,
		Dialect:    s.Dialect,
		Range:      s.LineRange,
	}, "manager"))
	return inst, nil
}

// requestWriteBack publishes the blur message for an instance.
func (m *Manager) requestWriteBack(id string) {
	ev := event.NewEvent(topic.TableBlur, BlurPayload{InstanceID: id}, "widget")
	if err := m.bus.PublishSync(context.Background(), ev); err != nil {
		m.log.Warn("write-back of %s failed: %v", id, err)
	}
}

// Release writes an instance's table back over its bound lines, clears the
// binding and drops the instance. A cleared binding makes this a no-op.
func (m *Manager) Release(id string) error {
	inst, ok := m.registry.Get(id)
	if !ok {
		m.log.Debug("release %s: not registered", id)
		return nil
	}

	rng, ok := m.bindings.Resolve(inst.BindingID)
	if !ok {
		m.registry.Remove(id)
		m.stats.Stale++
		m.log.Debug("release %s: binding already cleared", id)
		return nil
	}

	text := stripTerminator(inst.Table.Markdown())
	lines := strings.Split(text, "\n")
	if err := m.doc.ReplaceLines(rng.First, rng.Last, lines); err != nil {
		return fmt.Errorf("write back %s at %s: %w", id, rng, err)
	}

	m.bindings.Clear(inst.BindingID)
	m.registry.Remove(id)
	m.stats.WrittenBack++

	m.publish(context.Background(), event.NewEvent(topic.TableWrittenBack, WrittenPayload{
		InstanceID: id,
		Range:      rng,
		Lines:      len(lines),
	}, "manager"))
	return nil
}

// prune drops instances whose bindings were cleared by edits.
func (m *Manager) prune() int {
	n := 0
	for _, inst := range m.registry.All() {
		if _, ok := m.bindings.Resolve(inst.BindingID); ok {
			continue
		}
		m.registry.Remove(inst.ID)
		m.log.Debug("pruned %s: binding cleared", inst.ID)
		n++
	}
	m.stats.Pruned += n
	return n
}

func (m *Manager) publish(ctx context.Context, ev event.Topical) {
	if err := m.bus.PublishSync(ctx, ev); err != nil {
		m.log.Warn("publish %s: %v", ev.EventTopic(), err)
	}
}

// stripTerminator removes exactly one trailing line terminator.
func stripTerminator(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	return strings.TrimSuffix(s, "\n")
}
