package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestLogging_LogsMethodPathStatus(t *testing.T) {
	var buf bytes.Buffer
	mw := NewRequestLoggingMiddleware(testLogger(&buf))

	req := httptest.NewRequest("GET", "/api/quota/abc", nil)
	rec := httptest.NewRecorder()
	mw.Handler(okHandler()).ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, "method=GET") {
		t.Errorf("log missing method: %s", out)
	}
	if !strings.Contains(out, "/api/quota/abc") {
		t.Errorf("log missing path: %s", out)
	}
	if !strings.Contains(out, "status=200") {
		t.Errorf("log missing status: %s", out)
	}
}

func TestRequestLogging_SkipsHealthAndMetrics(t *testing.T) {
	for _, path := range []string{"/health", "/metrics"} {
		var buf bytes.Buffer
		mw := NewRequestLoggingMiddleware(testLogger(&buf))

		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		mw.Handler(okHandler()).ServeHTTP(rec, req)

		if buf.Len() != 0 {
			t.Errorf("request to %s should not be logged, got: %s", path, buf.String())
		}
	}
}

func TestRequestLogging_CapturesErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	mw := NewRequestLoggingMiddleware(testLogger(&buf))

	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest("POST", "/api/campaigns", nil)
	rec := httptest.NewRecorder()
	mw.Handler(failing).ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, "status=500") {
		t.Errorf("log missing error status: %s", out)
	}
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("5xx should log at WARN: %s", out)
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		rawQuery string
		want     string
	}{
		{
			name:     "no query",
			path:     "/api/quota/abc",
			rawQuery: "",
			want:     "/api/quota/abc",
		},
		{
			name:     "benign query preserved",
			path:     "/api/campaigns",
			rawQuery: "page=2&limit=10",
			want:     "/api/campaigns?page=2&limit=10",
		},
		{
			name:     "token redacted",
			path:     "/api/quota/abc",
			rawQuery: "token=supersecret",
			want:     "/api/quota/abc?token=[REDACTED]",
		},
		{
			name:     "api key redacted case-insensitive",
			path:     "/api/campaigns",
			rawQuery: "API_KEY=abc123&page=1",
			want:     "/api/campaigns?API_KEY=[REDACTED]&page=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizePath(tt.path, tt.rawQuery)
			if got != tt.want {
				t.Errorf("sanitizePath(%q, %q) = %q, want %q", tt.path, tt.rawQuery, got, tt.want)
			}
		})
	}
}

func discardSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
