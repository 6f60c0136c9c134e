package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/stratadrive/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Quarterly report.pdf", "Quarterly report.pdf"},
		{"trims", "  notes  ", "notes"},
		{"strips tags", "<b>Q3</b> report", "Q3 report"},
		{"keeps ampersand", "R&D budget", "R&D budget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlainText_RemovesScript(t *testing.T) {
	got := htmlsanitize.PlainText("ok<script>alert('xss')</script>")
	if strings.Contains(got, "<script") {
		t.Errorf("expected script tag removed, got %q", got)
	}
	if !strings.HasPrefix(got, "ok") {
		t.Errorf("expected text preserved, got %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	if !htmlsanitize.IsPlainText("") {
		t.Error("expected empty string to be plain text")
	}
	if !htmlsanitize.IsPlainText("Hello, World!") {
		t.Error("expected string without tags to be plain text")
	}
	if htmlsanitize.IsPlainText("<p>Hello</p>") {
		t.Error("expected string with tags to NOT be plain text")
	}
}
