package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/veilhq/veil/internal/audit"
	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/rules"
	"go.uber.org/zap"
)

type stubRulesStore struct {
	doc rules.Document
	err error
}

func (s stubRulesStore) Fetch(ctx context.Context) (rules.Document, error) {
	if s.err != nil {
		return rules.Document{}, s.err
	}
	return s.doc, nil
}

type failingSink struct{}

func (failingSink) Write(ctx context.Context, rec audit.Record) error {
	return errors.New("sink down")
}

func newTestServer(store rules.Store, sink audit.Sink, mutate func(*config.Config)) *Server {
	cfg := config.GetDefaults()
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	log := &logger.Logger{Logger: zap.NewNop()}
	cache := rules.NewCache(store, time.Minute, "test-salt", log.Logger)
	committer := audit.NewCommitter(sink, audit.DefaultRetention, log.Logger)

	return New(cfg, log, cache, committer)
}

func postAnonymise(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/anonymise", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) anonymiseResponse {
	t.Helper()
	var resp anonymiseResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	// A failing store must not affect liveness.
	s := newTestServer(stubRulesStore{err: fmt.Errorf("%w: down", rules.ErrUnavailable)}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"ok":true}` {
		t.Errorf("unexpected body: %q", rr.Body.String())
	}
}

func TestAnonymise(t *testing.T) {
	t.Run("EmailRedacted", func(t *testing.T) {
		sink := audit.NewMemorySink()
		s := newTestServer(nil, sink, nil)

		rr := postAnonymise(s, `{"text": "Contact me at a.b@example.com"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}

		resp := decodeResponse(t, rr)
		if resp.AnonymisedText != "Contact me at [REDACTED_EMAIL]" {
			t.Errorf("unexpected anonymised text: %q", resp.AnonymisedText)
		}
		if len(resp.RulesApplied) != 2 || resp.RulesApplied[0] != "email" || resp.RulesApplied[1] != "phone" {
			t.Errorf("unexpected rules applied: %v", resp.RulesApplied)
		}
	})

	t.Run("PhoneRedacted", func(t *testing.T) {
		s := newTestServer(nil, nil, nil)

		rr := postAnonymise(s, `{"text": "Call +44 7911 123456"}`)
		resp := decodeResponse(t, rr)

		if !strings.Contains(resp.AnonymisedText, "[REDACTED_PHONE]") {
			t.Errorf("expected phone sentinel: %q", resp.AnonymisedText)
		}
		if strings.Contains(resp.AnonymisedText, "123456") {
			t.Errorf("original digits leaked: %q", resp.AnonymisedText)
		}
	})

	t.Run("BlankTextRejected", func(t *testing.T) {
		s := newTestServer(nil, nil, nil)

		rr := postAnonymise(s, `{"text": "   "}`)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if strings.Contains(rr.Body.String(), "   ") {
			t.Error("error response must not echo the input")
		}
	})

	t.Run("MissingTextRejected", func(t *testing.T) {
		s := newTestServer(nil, nil, nil)

		rr := postAnonymise(s, `{}`)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("MalformedBodyRejected", func(t *testing.T) {
		s := newTestServer(nil, nil, nil)

		rr := postAnonymise(s, `{"text": `)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("StoreDocumentRespected", func(t *testing.T) {
		store := stubRulesStore{doc: rules.Document{Redact: []string{"email"}, Salt: "store-salt"}}
		s := newTestServer(store, nil, nil)

		rr := postAnonymise(s, `{"text": "a@x.io or +44 7911 123456"}`)
		resp := decodeResponse(t, rr)

		if !strings.Contains(resp.AnonymisedText, "[REDACTED_EMAIL]") {
			t.Errorf("expected email sentinel: %q", resp.AnonymisedText)
		}
		if strings.Contains(resp.AnonymisedText, "[REDACTED_PHONE]") {
			t.Errorf("phone rule not enabled, must not redact: %q", resp.AnonymisedText)
		}
		if len(resp.RulesApplied) != 1 || resp.RulesApplied[0] != "email" {
			t.Errorf("unexpected rules applied: %v", resp.RulesApplied)
		}
	})

	t.Run("StoreFailureFallsBack", func(t *testing.T) {
		store := stubRulesStore{err: fmt.Errorf("%w: down", rules.ErrUnavailable)}
		s := newTestServer(store, nil, nil)

		rr := postAnonymise(s, `{"text": "Contact me at a.b@example.com"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200 despite store failure, got %d", rr.Code)
		}

		resp := decodeResponse(t, rr)
		if len(resp.RulesApplied) != 2 {
			t.Errorf("expected fallback rule set, got %v", resp.RulesApplied)
		}
		if resp.AnonymisedText != "Contact me at [REDACTED_EMAIL]" {
			t.Errorf("unexpected anonymised text: %q", resp.AnonymisedText)
		}
	})

	t.Run("SinkFailureStillSucceeds", func(t *testing.T) {
		s := newTestServer(nil, failingSink{}, nil)

		rr := postAnonymise(s, `{"text": "Contact me at a.b@example.com"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200 despite sink failure, got %d", rr.Code)
		}
		if resp := decodeResponse(t, rr); resp.RequestID == "" {
			t.Error("expected a request ID")
		}
	})

	t.Run("AuditRecordCommitted", func(t *testing.T) {
		sink := audit.NewMemorySink()
		s := newTestServer(nil, sink, nil)

		original := "Contact me at a.b@example.com"
		rr := postAnonymise(s, `{"text": "`+original+`"}`)
		resp := decodeResponse(t, rr)

		rec, ok := sink.Get(resp.RequestID)
		if !ok {
			t.Fatal("audit record not written")
		}
		if rec.CVHash != audit.Hash("test-salt", original) {
			t.Error("audit hash does not match salted commitment")
		}
		if rec.TTL != rec.CreatedAt+7*24*60*60 {
			t.Errorf("ttl must be created_at plus seven days, got %d", rec.TTL)
		}
		if rec.RuleCounts["email"] != 1 || rec.RuleCounts["phone"] != 0 {
			t.Errorf("unexpected rule counts: %v", rec.RuleCounts)
		}
	})

	t.Run("RequestIDsUnique", func(t *testing.T) {
		s := newTestServer(nil, nil, nil)

		first := decodeResponse(t, postAnonymise(s, `{"text": "hello"}`))
		second := decodeResponse(t, postAnonymise(s, `{"text": "hello"}`))

		if first.RequestID == "" || second.RequestID == "" {
			t.Fatal("expected request IDs")
		}
		if first.RequestID == second.RequestID {
			t.Error("request IDs must be unique across calls")
		}
	})
}

func TestCORS(t *testing.T) {
	t.Run("ConfiguredOriginReflected", func(t *testing.T) {
		s := newTestServer(nil, nil, func(cfg *config.Config) {
			cfg.CORS.AllowedOrigin = "https://hr.example.org"
		})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://hr.example.org" {
			t.Errorf("unexpected allow-origin header: %q", got)
		}
	})

	t.Run("UnconfiguredOriginIsWildcard", func(t *testing.T) {
		s := newTestServer(nil, nil, func(cfg *config.Config) {
			cfg.CORS.AllowedOrigin = ""
		})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("unexpected allow-origin header: %q", got)
		}
	})

	t.Run("PreflightHandled", func(t *testing.T) {
		s := newTestServer(nil, nil, nil)

		req := httptest.NewRequest(http.MethodOptions, "/anonymise", nil)
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
		if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
			t.Errorf("unexpected allow-methods header: %q", got)
		}
	})
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(nil, nil, func(cfg *config.Config) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RequestsPerMin = 1
	})

	if rr := postAnonymise(s, `{"text": "hello"}`); rr.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rr.Code)
	}
	if rr := postAnonymise(s, `{"text": "hello"}`); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", rr.Code)
	}
}
