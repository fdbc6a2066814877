package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"capture-bridge/internal/domain"
)

func scrape(t *testing.T, m *Metrics, update func()) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler(update).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMetrics_diagnosticsAndGauge(t *testing.T) {
	m := New()
	m.OnDiagnostic("s1", domain.Diagnostic{Kind: domain.DiagnosticFrameDropped, Count: 1})
	m.OnDiagnostic("s1", domain.Diagnostic{Kind: domain.DiagnosticFrameDropped, Count: 2})
	m.OnDiagnostic("s1", domain.Diagnostic{Kind: domain.DiagnosticAudioDropped, Count: 1})
	m.OnDiagnostic("s1", domain.Diagnostic{Kind: domain.DiagnosticFormatSubstituted})
	m.OnDiagnostic("s1", domain.Diagnostic{Kind: domain.DiagnosticBufferFormatError})
	m.OnDiagnostic("s1", domain.Diagnostic{Kind: domain.DiagnosticDeviceDisconnected})
	m.IncFramesDelivered()
	m.IncAudioBuffers()
	m.IncRPCRequests("createVideoSource")
	m.IncRPCErrors("createVideoSource")

	out := scrape(t, m, func() { m.SetActiveSources(3) })
	for _, want := range []string{
		"capture_frames_dropped_total 2",
		"capture_format_substitutions_total 1",
		"capture_conversion_failures_total 1",
		"capture_frames_delivered_total 1",
		"capture_audio_buffers_total 1",
		"capture_audio_buffers_dropped_total 1",
		"capture_active_sources 3",
		`capture_rpc_requests_total{method="createVideoSource"} 1`,
		`capture_rpc_errors_total{method="createVideoSource"} 1`,
		`capture_device_events_total{event="device_disconnected"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestRequestMiddleware_countsErrors(t *testing.T) {
	m := New()
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	for _, p := range []string{"/ok", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	out := scrape(t, m, nil)
	if !strings.Contains(out, "capture_http_requests_total 2") || !strings.Contains(out, "capture_http_errors_total 1") {
		t.Errorf("unexpected scrape:\n%s", out)
	}
}
