package ui

import (
	"testing"
	"time"
)

func TestPadRight(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		length int
		want   string
	}{
		{"shorter than length", "hello", 10, "hello     "},
		{"equal to length", "hello", 5, "hello"},
		{"longer than length", "hello world", 5, "hello world"},
		{"empty string", "", 5, "     "},
		{"zero length", "hello", 0, "hello"},
		{"multibyte", "héllo", 6, "héllo "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PadRight(tt.input, tt.length)
			if got != tt.want {
				t.Errorf("PadRight(%q, %d) = %q, want %q", tt.input, tt.length, got, tt.want)
			}
		})
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"abc", 0, ""},
	}

	for _, tt := range tests {
		got := TruncateWithEllipsis(tt.input, tt.maxLen)
		if got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"basic wrap", "hello world foo bar", 10, "hello\nworld foo\nbar"},
		{"no wrap needed", "hello", 10, "hello"},
		{"exact width", "hello world", 11, "hello world"},
		{"single word longer than width", "supercalifragilisticexpialidocious", 10, "supercalifragilisticexpialidocious"},
		{"zero width", "hello world", 0, "hello world"},
		{"negative width", "hello world", -1, "hello world"},
		{"multiple spaces", "hello   world", 10, "hello\nworld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WordWrap(tt.text, tt.width)
			if got != tt.want {
				t.Errorf("WordWrap(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
		{30 * 24 * time.Hour, "Feb 12"},
	}
	for _, tt := range tests {
		if got := FormatTimeAgo(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("FormatTimeAgo(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}
