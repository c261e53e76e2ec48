package logger

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	t.Run("CleanValuePassesThrough", func(t *testing.T) {
		if got := Sanitize("https://careers.example.org"); got != "https://careers.example.org" {
			t.Errorf("clean value changed: %q", got)
		}
	})

	t.Run("OversizedValueReplaced", func(t *testing.T) {
		long := strings.Repeat("x", MaxSanitizedLength+1)
		if got := Sanitize(long); got != "[VALUE_TOO_LONG]" {
			t.Errorf("oversized value not replaced: %q", got)
		}
	})

	t.Run("BoundaryLengthKept", func(t *testing.T) {
		exact := strings.Repeat("x", MaxSanitizedLength)
		if got := Sanitize(exact); got != exact {
			t.Errorf("boundary-length value changed: %q", got)
		}
	})

	t.Run("EmailScrubbed", func(t *testing.T) {
		got := Sanitize("origin set by ops@example.com")
		if strings.Contains(got, "ops@example.com") {
			t.Errorf("email leaked: %q", got)
		}
		if !strings.Contains(got, "[REDACTED_EMAIL]") {
			t.Errorf("expected email sentinel: %q", got)
		}
	})

	t.Run("PhoneScrubbed", func(t *testing.T) {
		got := Sanitize("call 020 7946 0958")
		if strings.Contains(got, "7946") {
			t.Errorf("phone leaked: %q", got)
		}
	})
}
