// Package topic provides hierarchical event topics and wildcard matching.
//
// Topics use dot notation:
//
//	table.blur
//	table.render.failed
//	config.changed
//
// Patterns may use "*" for exactly one segment and "**" for zero or more
// segments, so "table.**" matches every table event.
package topic

import "strings"

// Topic represents a hierarchical event type using dot notation.
type Topic string

// Wildcard constants for pattern matching.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"

	// Separator is the character used to separate topic segments.
	Separator = "."
)

// Topics published by the table engine.
const (
	// TableBlur is published when editing focus leaves a rendered table.
	TableBlur Topic = "table.blur"

	// TableRendered is published after a span was converted and bound.
	TableRendered Topic = "table.rendered"

	// TableRenderFailed is published when a span could not be converted.
	TableRenderFailed Topic = "table.render.failed"

	// TableWrittenBack is published after a table was serialized into the buffer.
	TableWrittenBack Topic = "table.written"

	// ConfigChanged is published when a new configuration was applied.
	ConfigChanged Topic = "config.changed"
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// Child returns a child topic by appending a segment.
//
// Example: "table".Child("blur") -> "table.blur"
func (t Topic) Child(segment string) Topic {
	if t == "" {
		return Topic(segment)
	}
	return Topic(string(t) + Separator + segment)
}

// IsWildcard returns true if the topic contains any wildcard characters.
func (t Topic) IsWildcard() bool {
	return strings.Contains(string(t), WildcardSingle)
}

// IsValid returns true if the topic is non-empty and has no empty segments.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// Matches returns true if this topic matches the given pattern.
func (t Topic) Matches(pattern Topic) bool {
	return matchSegments(t.Segments(), pattern.Segments())
}

// matchSegments performs recursive pattern matching on topic segments.
func matchSegments(topic, pattern []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == WildcardMulti {
			// ** consumes zero or more topic segments.
			for skip := 0; skip <= len(topic); skip++ {
				if matchSegments(topic[skip:], pattern[1:]) {
					return true
				}
			}
			return false
		}

		if len(topic) == 0 {
			return false
		}
		if pattern[0] != WildcardSingle && pattern[0] != topic[0] {
			return false
		}
		topic, pattern = topic[1:], pattern[1:]
	}
	return len(topic) == 0
}
