package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Record is the minimal, PII-free proof that a request was processed.
//
// Invariants:
// - Never contains the original or redacted text.
// - Never contains the salt.
// - Immutable once written; the sink deletes it at or after TTL.
type Record struct {
	RequestID string `db:"request_id" json:"requestId"`

	// CreatedAt and TTL are epoch seconds. TTL is the deletion deadline
	// enforced by the sink.
	CreatedAt int64 `db:"created_at" json:"createdAt"`
	TTL       int64 `db:"ttl" json:"ttl"`

	// CVHash is the salted one-way digest of the original text.
	CVHash string `db:"cv_hash" json:"cvHash"`

	// RuleCounts maps each enabled rule to a binary matched indicator.
	RuleCounts map[string]int `json:"ruleCounts"`
}

// DefaultRetention is how long records live before the sink expires them.
const DefaultRetention = 7 * 24 * time.Hour

// Hash computes the audit commitment: hex-encoded SHA-256 over the salt
// concatenated in front of the text. Both are hashed as raw UTF-8 bytes so
// the digest is reproducible across implementations.
func Hash(salt, text string) string {
	sum := sha256.Sum256([]byte(salt + text))
	return hex.EncodeToString(sum[:])
}
