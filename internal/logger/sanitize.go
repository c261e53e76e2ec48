package logger

import "github.com/veilhq/veil/internal/redact"

// MaxSanitizedLength is the longest free-form value the sanitizer will let
// through. Anything longer is replaced entirely rather than risk scanning a
// full document into the logs.
const MaxSanitizedLength = 120

const oversizePlaceholder = "[VALUE_TOO_LONG]"

// Sanitize guards a free-form value on its way into the logs. Oversized
// values are replaced with a fixed placeholder; short values still get the
// email and phone redaction rules applied to catch short-form PII. Request
// text and redacted text must never be passed here or anywhere else in the
// logging path.
func Sanitize(value string) string {
	if len(value) > MaxSanitizedLength {
		return oversizePlaceholder
	}
	clean, _ := redact.Apply(value, []string{"email", "phone"})
	return clean
}
