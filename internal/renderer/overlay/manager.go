package overlay

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/tablestorm/internal/engine/buffer"
)

// Manager owns the live bindings of one buffer and keeps them aligned with
// its text. It implements buffer.Observer.
//
// Binding edges are fixed: lines inserted directly above a binding push it
// down and lines inserted directly below it do not extend it. An edit that
// touches any bound line clears the binding. Edits elsewhere never remove it.
type Manager struct {
	mu sync.RWMutex

	// bindings contains live bindings keyed by ID.
	bindings map[string]*Binding

	// order keeps binding IDs in creation order.
	order []string
}

// NewManager creates an empty binding manager.
func NewManager() *Manager {
	return &Manager{
		bindings: make(map[string]*Binding),
	}
}

// Bind creates a binding over rng rendered by h. It fails with ErrOverlap
// when any live binding shares a line with rng.
func (m *Manager) Bind(rng buffer.LineRange, h Handle) (string, error) {
	if !rng.IsValid() || rng.First == rng.Last {
		return "", ErrInvalidRange
	}
	if h == nil {
		return "", ErrNilHandle
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.overlapsLocked(rng) {
		return "", ErrOverlap
	}

	b := &Binding{
		id:     uuid.NewString(),
		rng:    rng,
		handle: h,
		state:  StateBound,
	}
	m.bindings[b.id] = b
	m.order = append(m.order, b.id)
	return b.id, nil
}

// Get returns a snapshot of the binding with the given ID.
func (m *Manager) Get(id string) (Binding, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.bindings[id]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// Resolve returns the current range of a binding. The second result is
// false when the binding no longer exists.
func (m *Manager) Resolve(id string) (buffer.LineRange, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.bindings[id]
	if !ok {
		return buffer.LineRange{}, false
	}
	return b.Range()
}

// Overlaps returns true if any live binding shares a line with rng.
func (m *Manager) Overlaps(rng buffer.LineRange) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overlapsLocked(rng)
}

func (m *Manager) overlapsLocked(rng buffer.LineRange) bool {
	for _, b := range m.bindings {
		if b.rng.Overlaps(rng) {
			return true
		}
	}
	return false
}

// At returns the binding covering line, if any.
func (m *Manager) At(line int) (Binding, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		if b := m.bindings[id]; b.rng.Contains(line) {
			return *b, true
		}
	}
	return Binding{}, false
}

// Clear removes a binding. It returns false if the binding was already gone.
func (m *Manager) Clear(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked(id)
}

func (m *Manager) clearLocked(id string) bool {
	b, ok := m.bindings[id]
	if !ok {
		return false
	}
	b.state = StateCleared
	delete(m.bindings, id)

	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// ClearAll removes every binding.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.bindings {
		b.state = StateCleared
	}
	m.bindings = make(map[string]*Binding)
	m.order = nil
}

// Count returns the number of live bindings.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bindings)
}

// All returns snapshots of the live bindings in creation order.
func (m *Manager) All() []Binding {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Binding, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, *m.bindings[id])
	}
	return result
}

// OnEdit moves or clears bindings after a buffer edit.
func (m *Manager) OnEdit(e buffer.Edit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, replaced := e.OldRange()
	var stale []string

	for _, id := range m.order {
		b := m.bindings[id]
		switch {
		case replaced && old.Overlaps(b.rng):
			stale = append(stale, id)
		case !replaced && e.First > b.rng.First && e.First <= b.rng.Last:
			// Lines inserted between bound lines.
			stale = append(stale, id)
		case e.First <= b.rng.First:
			// Entirely above the binding, including insertion at its first line.
			b.rng.First += e.Delta()
			b.rng.Last += e.Delta()
		}
	}

	for _, id := range stale {
		m.clearLocked(id)
	}
}
