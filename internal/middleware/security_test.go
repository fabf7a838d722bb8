package middleware

import (
	"net/http/httptest"
	"testing"
)

func TestSecurityHeaders_Set(t *testing.T) {
	mw := NewSecurityHeadersMiddleware(false)

	req := httptest.NewRequest("GET", "/api/quota/abc", nil)
	rec := httptest.NewRecorder()
	mw.Handler(okHandler()).ServeHTTP(rec, req)

	checks := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, want := range checks {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}

	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should not be set when not secure")
	}
}

func TestSecurityHeaders_HSTSInProduction(t *testing.T) {
	mw := NewSecurityHeadersMiddleware(true)

	req := httptest.NewRequest("GET", "/api/quota/abc", nil)
	rec := httptest.NewRecorder()
	mw.Handler(okHandler()).ServeHTTP(rec, req)

	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS should be set in production")
	}
}
