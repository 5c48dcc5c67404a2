package manager

import (
	"errors"
	"fmt"

	"github.com/dshills/tablestorm/internal/engine/buffer"
	"github.com/dshills/tablestorm/internal/renderer/widget"
	"github.com/dshills/tablestorm/internal/table"
)

// ErrDuplicateInstance is returned when an instance ID is registered twice.
var ErrDuplicateInstance = errors.New("instance already registered")

// Instance is a rendered table.
type Instance struct {
	// ID identifies the instance in write-back messages.
	ID string

	Dialect table.Dialect

	// Source is the span text the table was built from.
	Source string

	Table  *table.Table
	Widget *widget.Widget

	// BindingID is the binding that replaces the span with Widget.
	BindingID string

	// Range is where the span was when it was rendered. Resolve the binding
	// for the current position.
	Range buffer.LineRange
}

// Registry holds live instances in the order they were added.
// It is owned by one Manager and is not safe for concurrent use.
type Registry struct {
	order []string
	items map[string]*Instance
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*Instance)}
}

// Add registers an instance.
func (r *Registry) Add(inst *Instance) error {
	if _, ok := r.items[inst.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateInstance, inst.ID)
	}
	r.items[inst.ID] = inst
	r.order = append(r.order, inst.ID)
	return nil
}

// Get returns the instance with the given ID.
func (r *Registry) Get(id string) (*Instance, bool) {
	inst, ok := r.items[id]
	return inst, ok
}

// Remove drops an instance. It returns false if it was not registered.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.items[id]; !ok {
		return false
	}
	delete(r.items, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	return len(r.order)
}

// All returns the live instances in insertion order.
func (r *Registry) All() []*Instance {
	out := make([]*Instance, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}
