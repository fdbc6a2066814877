package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"capture-bridge/internal/domain"
)

// Metrics holds the Prometheus counters and gauges of the bridge.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequestsTotal   prometheus.Counter
	httpErrorsTotal     prometheus.Counter
	rpcRequestsTotal    *prometheus.CounterVec
	rpcErrorsTotal      *prometheus.CounterVec
	framesDelivered     prometheus.Counter
	framesDropped       prometheus.Counter
	conversionFailures  prometheus.Counter
	formatSubstitutions prometheus.Counter
	audioBuffers        prometheus.Counter
	audioDropped        prometheus.Counter
	deviceEvents        *prometheus.CounterVec
	activeSources       prometheus.Gauge
}

// New creates and registers the metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "capture_http_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		httpErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "capture_http_errors_total",
			Help: "Total number of HTTP responses with status 4xx or 5xx",
		}),
		rpcRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_rpc_requests_total",
			Help: "Total number of method channel requests",
		}, []string{"method"}),
		rpcErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_rpc_errors_total",
			Help: "Total number of method channel requests answered with an error",
		}, []string{"method"}),
		framesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "capture_frames_delivered_total",
			Help: "Video frames handed to texture providers",
		}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "capture_frames_dropped_total",
			Help: "Video samples dropped by the device or a full delivery queue",
		}),
		conversionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "capture_conversion_failures_total",
			Help: "Video samples discarded because they could not be converted",
		}),
		formatSubstitutions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "capture_format_substitutions_total",
			Help: "Sessions configured with the fallback pixel format",
		}),
		audioBuffers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "capture_audio_buffers_total",
			Help: "Audio buffers reduced to level vectors",
		}),
		audioDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "capture_audio_buffers_dropped_total",
			Help: "Audio buffers dropped by a full delivery queue",
		}),
		deviceEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "capture_device_events_total",
			Help: "Hot-plug events that affected a session",
		}, []string{"event"}),
		activeSources: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capture_active_sources",
			Help: "Number of registered capture sources",
		}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpErrorsTotal,
		m.rpcRequestsTotal,
		m.rpcErrorsTotal,
		m.framesDelivered,
		m.framesDropped,
		m.conversionFailures,
		m.formatSubstitutions,
		m.audioBuffers,
		m.audioDropped,
		m.deviceEvents,
		m.activeSources,
	)
	return m
}

// IncHTTPRequests increments the HTTP request counter.
func (m *Metrics) IncHTTPRequests() { m.httpRequestsTotal.Inc() }

// IncHTTPErrors increments the HTTP error counter.
func (m *Metrics) IncHTTPErrors() { m.httpErrorsTotal.Inc() }

// IncRPCRequests counts one method channel request.
func (m *Metrics) IncRPCRequests(method string) { m.rpcRequestsTotal.WithLabelValues(method).Inc() }

// IncRPCErrors counts one failed method channel request.
func (m *Metrics) IncRPCErrors(method string) { m.rpcErrorsTotal.WithLabelValues(method).Inc() }

// IncFramesDelivered counts one delivered video frame.
func (m *Metrics) IncFramesDelivered() { m.framesDelivered.Inc() }

// IncAudioBuffers counts one processed audio buffer.
func (m *Metrics) IncAudioBuffers() { m.audioBuffers.Inc() }

// SetActiveSources sets the active sources gauge.
func (m *Metrics) SetActiveSources(n int) { m.activeSources.Set(float64(n)) }

// OnDiagnostic records session diagnostics. It satisfies
// application.DiagnosticsSink.
func (m *Metrics) OnDiagnostic(_ string, d domain.Diagnostic) {
	switch d.Kind {
	case domain.DiagnosticFrameDropped:
		m.framesDropped.Inc()
	case domain.DiagnosticAudioDropped:
		m.audioDropped.Inc()
	case domain.DiagnosticUnsupportedPixelFormat, domain.DiagnosticBufferFormatError:
		m.conversionFailures.Inc()
	case domain.DiagnosticFormatSubstituted:
		m.formatSubstitutions.Inc()
	case domain.DiagnosticDeviceDisconnected, domain.DiagnosticDeviceReconnected:
		m.deviceEvents.WithLabelValues(d.Kind.String()).Inc()
	}
}

// Handler serves the registry. updateGauges runs before each scrape.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
