package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zap.AtomicLevel
	}{
		{"DEBUG", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"debug", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{" warn ", zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"ERROR", zap.NewAtomicLevelAt(zap.ErrorLevel)},
		{"", zap.NewAtomicLevelAt(zap.InfoLevel)},
		{"bogus", zap.NewAtomicLevelAt(zap.InfoLevel)},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got.Level() != tt.want.Level() {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got.Level(), tt.want.Level())
		}
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Sync()
}

func TestLiveCheckOutcome(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"colder than normal", "colder"},
		{"warmer than normal", "warmer"},
		{"within normal range", "normal"},
		{"unauthorized", "unauthorized"},
		{"no_baseline", "no_baseline"},
	}
	for _, tt := range tests {
		if got := LiveCheckOutcome(tt.in); got != tt.want {
			t.Errorf("LiveCheckOutcome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMetricsHandler(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/cities", "2xx").Inc()
	LiveChecksTotal.WithLabelValues("normal").Inc()

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, metric := range []string{"httpRequestsTotal", "liveChecksTotal", "go_goroutines"} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %q", metric)
		}
	}
}
