package topic

import "testing"

func TestTopic_IsValid(t *testing.T) {
	tests := []struct {
		topic    Topic
		expected bool
	}{
		{TableBlur, true},
		{Topic("single"), true},
		{Topic(""), false},
		{Topic(".table"), false},
		{Topic("table."), false},
		{Topic("table..blur"), false},
	}

	for _, tt := range tests {
		if got := tt.topic.IsValid(); got != tt.expected {
			t.Errorf("Topic(%q).IsValid() = %v, want %v", tt.topic, got, tt.expected)
		}
	}
}

func TestTopic_Matches(t *testing.T) {
	tests := []struct {
		topic    Topic
		pattern  Topic
		expected bool
	}{
		{TableBlur, TableBlur, true},
		{TableBlur, Topic("table.rendered"), false},
		{Topic("table"), Topic("table.blur"), false},

		{TableBlur, Topic("table.*"), true},
		{TableRenderFailed, Topic("table.*"), false},
		{TableRenderFailed, Topic("table.*.failed"), true},
		{ConfigChanged, Topic("*.changed"), true},

		{TableRenderFailed, Topic("table.**"), true},
		{Topic("table"), Topic("table.**"), true},
		{ConfigChanged, Topic("table.**"), false},
		{TableBlur, Topic("**"), true},
		{TableRenderFailed, Topic("**.failed"), true},
		{TableBlur, Topic("**.failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.topic.String()+"_matches_"+tt.pattern.String(), func(t *testing.T) {
			if got := tt.topic.Matches(tt.pattern); got != tt.expected {
				t.Errorf("Topic(%q).Matches(%q) = %v, want %v", tt.topic, tt.pattern, got, tt.expected)
			}
		})
	}
}

func TestTopic_Child(t *testing.T) {
	if got := Topic("table").Child("blur"); got != TableBlur {
		t.Errorf("Child() = %q, want %q", got, TableBlur)
	}
	if got := Topic("").Child("table"); got != "table" {
		t.Errorf("Child() on empty = %q", got)
	}
	if !Topic("table.*").IsWildcard() || TableBlur.IsWildcard() {
		t.Error("IsWildcard mismatch")
	}
}
