package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveFetch("stats", "ok", time.Second)
	m.UpdateApplied()
	m.ConnectionState(2)
	m.HTTPRequest("GET", "/x", 200)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.UpdateApplied()
	m.Submission("conflict")
	m.ObserveFetch("list", "ok", 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"kpi_dashboard_live_updates_applied_total 1",
		`kpi_dashboard_submissions_total{outcome="conflict"} 1`,
		`kpi_dashboard_fetch_duration_seconds_count{call="list",outcome="ok"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("missing %q in exposition", want)
		}
	}
}
