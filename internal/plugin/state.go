package plugin

// State represents the lifecycle state of a plugin.
type State int

// Plugin states.
const (
	// StateUnloaded - Plugin was discovered but its code has not run.
	StateUnloaded State = iota

	// StateLoaded - Plugin code ran and its commands are registered.
	StateLoaded

	// StateError - Plugin could not be inspected or loaded.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
