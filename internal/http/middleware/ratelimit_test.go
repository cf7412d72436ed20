package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func rateLimitedRequest(mw func(http.Handler) http.Handler, terminal, realIP string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims", nil)
	if terminal != "" {
		req.Header.Set(TerminalHeader, terminal)
	}
	if realIP != "" {
		req.Header.Set("X-Real-Ip", realIP)
	}
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	mw := RateLimit(0.001, 2)

	for i := 0; i < 2; i++ {
		if code := rateLimitedRequest(mw, "TERM-1", ""); code != http.StatusOK {
			t.Fatalf("request %d: expected status %d, got %d", i, http.StatusOK, code)
		}
	}
	if code := rateLimitedRequest(mw, "TERM-1", ""); code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, code)
	}
}

func TestRateLimitKeysByTerminal(t *testing.T) {
	mw := RateLimit(0.001, 1)

	// Two terminals behind the same clinic NAT get independent budgets.
	if code := rateLimitedRequest(mw, "TERM-1", "10.0.0.5"); code != http.StatusOK {
		t.Fatalf("terminal 1: expected status %d, got %d", http.StatusOK, code)
	}
	if code := rateLimitedRequest(mw, "TERM-2", "10.0.0.5"); code != http.StatusOK {
		t.Fatalf("terminal 2: expected status %d, got %d", http.StatusOK, code)
	}
	if code := rateLimitedRequest(mw, "TERM-1", "10.0.0.5"); code != http.StatusTooManyRequests {
		t.Fatalf("terminal 1 repeat: expected status %d, got %d", http.StatusTooManyRequests, code)
	}
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	mw := RateLimit(0.001, 1)

	if code := rateLimitedRequest(mw, "", "10.0.0.5"); code != http.StatusOK {
		t.Fatalf("first request: expected status %d, got %d", http.StatusOK, code)
	}
	if code := rateLimitedRequest(mw, "", "10.0.0.6"); code != http.StatusOK {
		t.Fatalf("other ip: expected status %d, got %d", http.StatusOK, code)
	}
	if code := rateLimitedRequest(mw, "", "10.0.0.5"); code != http.StatusTooManyRequests {
		t.Fatalf("repeat ip: expected status %d, got %d", http.StatusTooManyRequests, code)
	}
}
