package events

import "time"

// EventTypeAnonymise marks a completed anonymisation request.
const EventTypeAnonymise = "anonymise"

// Event is a PII-free operational event pushed to stream subscribers. It
// carries only the fields that are safe to leave the process: identifiers,
// rule metadata, and timings. Text never travels through the hub.
type Event struct {
	Type         string         `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	RequestID    string         `json:"requestId"`
	RulesApplied []string       `json:"rulesApplied"`
	RuleCounts   map[string]int `json:"ruleCounts"`
	DurationMS   float64        `json:"durationMs"`
	AuditWritten bool           `json:"auditWritten"`
}
