package rules

import "time"

// Document is the externally managed redaction policy. It is replaced
// wholesale on every refresh and never mutated in place.
type Document struct {
	// Redact lists the rule names to enable. Unrecognized names are
	// ignored by the redaction engine.
	Redact []string `json:"redact"`

	// Salt is hashing entropy for the audit commitment. It is never
	// logged and never persisted verbatim.
	Salt string `json:"salt"`
}

// DefaultCacheTTL is how long a fetched document is served without
// consulting the store again.
const DefaultCacheTTL = 60 * time.Second

// Fallback returns the document used whenever the store cannot supply one:
// both recognized rules enabled, with the process-configured fallback salt.
func Fallback(salt string) Document {
	return Document{
		Redact: []string{"email", "phone"},
		Salt:   salt,
	}
}
