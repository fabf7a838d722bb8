package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMetricsAuth_DisabledWhenNoCredentials(t *testing.T) {
	mw := NewMetricsAuthMiddleware("", "")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	mw.Handler(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when auth disabled", rec.Code)
	}
}

func TestMetricsAuth_RejectsMissingCredentials(t *testing.T) {
	mw := NewMetricsAuthMiddleware("prometheus", "scrapeme")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	mw.Handler(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got == "" {
		t.Error("missing WWW-Authenticate header")
	}
}

func TestMetricsAuth_RejectsWrongCredentials(t *testing.T) {
	mw := NewMetricsAuthMiddleware("prometheus", "scrapeme")

	req := httptest.NewRequest("GET", "/metrics", nil)
	req.SetBasicAuth("prometheus", "wrong")
	rec := httptest.NewRecorder()
	mw.Handler(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMetricsAuth_AcceptsValidCredentials(t *testing.T) {
	mw := NewMetricsAuthMiddleware("prometheus", "scrapeme")

	req := httptest.NewRequest("GET", "/metrics", nil)
	req.SetBasicAuth("prometheus", "scrapeme")
	rec := httptest.NewRecorder()
	mw.Handler(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
