package command

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the commands available in a session.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds a command, replacing any command with the same ID.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", ErrInvalidCommand)
	}
	if cmd.ID == "" {
		return fmt.Errorf("%w: empty ID", ErrInvalidCommand)
	}
	if cmd.Title == "" {
		return fmt.Errorf("%w: %q has no title", ErrInvalidCommand, cmd.ID)
	}

	r.mu.Lock()
	r.commands[cmd.ID] = cmd
	r.mu.Unlock()
	return nil
}

// Unregister removes a command.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.commands[id]; !ok {
		return false
	}
	delete(r.commands, id)
	return true
}

// UnregisterBySource removes every command registered by source and
// returns how many were removed.
func (r *Registry) UnregisterBySource(source string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, cmd := range r.commands {
		if cmd.Source == source {
			delete(r.commands, id)
			n++
		}
	}
	return n
}

// Get returns the command with the given ID.
func (r *Registry) Get(id string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// All returns every command sorted by ID.
func (r *Registry) All() []*Command {
	r.mu.RLock()
	out := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of registered commands.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Execute runs a command by ID. The registry lock is not held while the
// handler runs, so handlers may execute other commands.
func (r *Registry) Execute(id string, args map[string]any) error {
	cmd, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cmd.Execute(args)
}
