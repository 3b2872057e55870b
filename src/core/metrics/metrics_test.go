package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRunAndToolCall(t *testing.T) {
	m := NewMetrics()
	m.RecordRun("completed", 2*time.Second)
	m.RecordRun("completed", time.Second)
	m.RecordRun("failed", time.Second)
	m.RecordToolCall("getUltraSrtFcst", true)
	m.RecordToolCall("unknown", false)

	if got := testutil.ToFloat64(m.AssistantRunsTotal.WithLabelValues("completed")); got != 2 {
		t.Fatalf("expected 2 completed runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("unknown", "error")); got != 1 {
		t.Fatalf("expected 1 failed tool call, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRun("completed", time.Second)
	m.RecordToolCall("x", true)
	m.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
	m.RecordGateRejection()
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "abby_http_requests_total") {
		t.Fatalf("expected http counter in output")
	}
}
