package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(Saves.WithLabelValues("plain", OutcomeSuccess))
	Saves.WithLabelValues("plain", OutcomeSuccess).Inc()

	if got := testutil.ToFloat64(Saves.WithLabelValues("plain", OutcomeSuccess)); got != before+1 {
		t.Errorf("Expected %v saves, got %v", before+1, got)
	}
}

func TestHandler(t *testing.T) {
	PlaceholderInserts.WithLabelValues(ModeAtCursor).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"draftroom_placeholder_inserts_total", "draftroom_boot_time"} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected metrics output to contain %q", name)
		}
	}
}

func TestInstrument(t *testing.T) {
	h := Instrument("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected status to pass through, got %d", rec.Code)
	}
	if n := testutil.CollectAndCount(httpRequests, "draftroom_http_request_duration_seconds"); n == 0 {
		t.Error("Expected a latency observation")
	}
}
