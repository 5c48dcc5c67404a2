// Package command provides the registry of named editor commands and the
// built-in table commands.
package command

import (
	"errors"
	"fmt"
	"maps"
)

// Sentinel errors for command operations.
var (
	// ErrNotFound indicates no command is registered under an ID.
	ErrNotFound = errors.New("command not found")

	// ErrInvalidCommand indicates a command that cannot be registered.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrNoCursor indicates a command that needs a cursor ran without one.
	ErrNoCursor = errors.New("no cursor")
)

// ArgType defines the type of a command argument.
type ArgType uint8

const (
	// ArgString is a string argument.
	ArgString ArgType = iota

	// ArgNumber is a numeric argument (int or float).
	ArgNumber

	// ArgBoolean is a boolean argument.
	ArgBoolean
)

// String returns a string representation of the argument type.
func (t ArgType) String() string {
	switch t {
	case ArgString:
		return "string"
	case ArgNumber:
		return "number"
	case ArgBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Arg defines a command argument.
type Arg struct {
	Name     string
	Type     ArgType
	Required bool
	Default  any
}

// Validate checks if a value is valid for this argument.
func (a *Arg) Validate(value any) error {
	if value == nil {
		if a.Required {
			return fmt.Errorf("argument %q is required", a.Name)
		}
		return nil
	}

	switch a.Type {
	case ArgString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("argument %q must be a string", a.Name)
		}
	case ArgNumber:
		switch value.(type) {
		case int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
		default:
			return fmt.Errorf("argument %q must be a number", a.Name)
		}
	case ArgBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean", a.Name)
		}
	}
	return nil
}

// Handler executes a command.
type Handler func(args map[string]any) error

// Command is a named action.
type Command struct {
	// ID is the unique command identifier (e.g., "table.insert").
	ID string

	// Title is the display name.
	Title string

	Description string

	Handler Handler
	Args    []Arg

	// Source indicates where the command was registered, e.g. "core" or
	// "lua:init.lua".
	Source string
}

// Execute validates args, fills in defaults and runs the handler.
// The caller's map is not modified.
func (c *Command) Execute(args map[string]any) error {
	for i := range c.Args {
		arg := &c.Args[i]
		value, ok := args[arg.Name]
		if !ok {
			value = arg.Default
		}
		if err := arg.Validate(value); err != nil {
			return fmt.Errorf("command %q: %w", c.ID, err)
		}
	}
	if c.Handler == nil {
		return fmt.Errorf("command %q has no handler", c.ID)
	}

	execArgs := make(map[string]any, len(args))
	maps.Copy(execArgs, args)
	for i := range c.Args {
		arg := &c.Args[i]
		if _, ok := execArgs[arg.Name]; !ok && arg.Default != nil {
			execArgs[arg.Name] = arg.Default
		}
	}
	return c.Handler(execArgs)
}
