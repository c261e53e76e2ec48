package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sink is the persistence contract for audit records. Writes are keyed by
// RequestID; a duplicate key overwrites rather than conflicts.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// Committer derives the audit commitment for a request and writes the
// record. Audit is best-effort: a failed or skipped write never fails the
// request that produced it.
type Committer struct {
	sink      Sink
	retention time.Duration
	clock     func() time.Time
	logger    *zap.Logger
}

// NewCommitter creates a committer over the given sink. A nil sink disables
// persistence, which supports running before the sink is provisioned.
func NewCommitter(sink Sink, retention time.Duration, logger *zap.Logger) *Committer {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Committer{
		sink:      sink,
		retention: retention,
		clock:     time.Now,
		logger:    logger,
	}
}

// Commit hashes the original text with the salt and persists the audit
// record. The return value reports whether a record was written; it exists
// for operational logging only and must never be surfaced as an API error.
func (c *Committer) Commit(ctx context.Context, requestID, text, salt string, ruleCounts map[string]int) bool {
	if c.sink == nil {
		c.logger.Debug("No audit sink configured, skipping audit write",
			zap.String("request_id", requestID))
		return false
	}

	now := c.clock().Unix()
	rec := Record{
		RequestID:  requestID,
		CreatedAt:  now,
		TTL:        now + int64(c.retention.Seconds()),
		CVHash:     Hash(salt, text),
		RuleCounts: ruleCounts,
	}

	if err := c.sink.Write(ctx, rec); err != nil {
		c.logger.Error("Audit write failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		return false
	}

	return true
}
