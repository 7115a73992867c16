package styles

import (
	"strings"
	"testing"
)

func TestKindColor(t *testing.T) {
	tests := []struct {
		kind     string
		expected string
	}{
		{"message", "#10B981"},
		{"file", "#F59E0B"},
		{"unknown", "#9CA3AF"}, // Should fall back to MutedColor
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got := KindColor(tt.kind)
			if string(got) != tt.expected {
				t.Errorf("KindColor(%q) = %q, want %q", tt.kind, got, tt.expected)
			}
		})
	}
}

func TestKindBadge(t *testing.T) {
	if got := KindBadge("file"); !strings.Contains(got, "FILE") {
		t.Errorf("KindBadge(file) = %q", got)
	}
	if got := KindBadge("message"); !strings.Contains(got, "MSG") {
		t.Errorf("KindBadge(message) = %q", got)
	}
}
