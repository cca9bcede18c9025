package logger

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		max    int
		expect string
	}{
		{"empty", "", 10, ""},
		{"plain", "http://a.com", 0, "http://a.com"},
		{"newline injection", "http://a.com\r\nfake=1", 0, "http://a.comfake=1"},
		{"control chars", "a\x00b\x1bc", 0, "abc"},
		{"invalid utf8", "a\xffb", 0, "ab"},
		{"truncate", "abcdef", 3, "abc..."},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.input, tt.max); got != tt.expect {
				t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expect)
			}
		})
	}
}

func TestSanitizeOrigin_Truncates(t *testing.T) {
	t.Parallel()

	long := "http://" + strings.Repeat("a", MaxOriginLength*2)
	got := SanitizeOrigin(long)
	if len(got) != MaxOriginLength+len("...") {
		t.Errorf("Expected truncated length %d, got %d", MaxOriginLength+3, len(got))
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	if SanitizeError(nil) != "" {
		t.Error("Expected empty string for nil error")
	}
	if got := SanitizeError(errors.New("boom\n")); got != "boom" {
		t.Errorf("Expected %q, got %q", "boom", got)
	}
}
