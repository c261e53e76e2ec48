package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/veilhq/veil/internal/events"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/redact"
	"go.uber.org/zap"
)

type anonymiseRequest struct {
	Text string `json:"text"`
}

type anonymiseResponse struct {
	RequestID      string   `json:"requestId"`
	AnonymisedText string   `json:"anonymisedText"`
	RulesApplied   []string `json:"rulesApplied"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleHealth handles liveness probes. It touches no dependencies so a
// broken rules store or audit sink never fails the probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"ok":true}`))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":               "veil",
		"version":            "0.1.0",
		"audit_enabled":      s.config.Audit.Enabled,
		"rate_limit_enabled": s.config.RateLimit.Enabled,
		"rules":              len(redact.Rules()),
	})
}

// handleAnonymise validates the request, redacts the text under the current
// rules, commits the audit record, and returns the redacted text. Error
// messages never echo the input; neither the original nor the redacted text
// reaches the logs.
func (s *Server) handleAnonymise(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req anonymiseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "missing or empty 'text' field")
		return
	}

	// Failures inside the cache and committer degrade locally; from here
	// on the request always succeeds.
	doc := s.cache.Get(r.Context())
	redacted, counts := redact.Apply(req.Text, doc.Redact)

	requestID := requestIDFrom(r.Context())
	written := s.committer.Commit(r.Context(), requestID, req.Text, doc.Salt, counts)

	durationMS := float64(time.Since(start).Microseconds()) / 1000.0

	s.logger.Info("Anonymise request processed",
		zap.String("request_id", requestID),
		zap.Strings("rules_applied", doc.Redact),
		zap.Any("rule_counts", counts),
		zap.Float64("duration_ms", durationMS),
		zap.Bool("audit_written", written),
		zap.String("allowed_origin", logger.Sanitize(s.config.CORS.AllowedOrigin)),
	)

	if s.hub != nil {
		s.hub.BroadcastEvent(events.Event{
			Type:         events.EventTypeAnonymise,
			Timestamp:    time.Now(),
			RequestID:    requestID,
			RulesApplied: doc.Redact,
			RuleCounts:   counts,
			DurationMS:   durationMS,
			AuditWritten: written,
		})
	}

	writeJSON(w, http.StatusOK, anonymiseResponse{
		RequestID:      requestID,
		AnonymisedText: redacted,
		RulesApplied:   doc.Redact,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
