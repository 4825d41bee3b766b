package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/waftester/bountyscout/pkg/output/dispatcher"
	"github.com/waftester/bountyscout/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*PrometheusHook)(nil)

// PrometheusHook turns scan events into Prometheus metrics on a private
// registry. Handler serves them; the API mounts it at /metrics.
type PrometheusHook struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	scansTotal     *prometheus.CounterVec
	programsTotal  prometheus.Counter
	targetsTotal   *prometheus.CounterVec
	verdictsTotal  *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	progressRatio  prometheus.Gauge
	scanning       prometheus.Gauge
	probeLatency   prometheus.Histogram
	scoreHistogram *prometheus.HistogramVec
	lastDuration   prometheus.Gauge

	mu          sync.Mutex
	lastCurrent int
}

// PrometheusOptions configures the Prometheus hook.
type PrometheusOptions struct {
	// Namespace prefixes every metric (default "bountyscout").
	Namespace string

	// Logger receives handler errors.
	Logger *slog.Logger
}

// NewPrometheusHook creates the hook and registers its collectors.
func NewPrometheusHook(opts PrometheusOptions) (*PrometheusHook, error) {
	if opts.Namespace == "" {
		opts.Namespace = "bountyscout"
	}
	h := &PrometheusHook{
		registry: prometheus.NewRegistry(),
		logger:   orDefault(opts.Logger),
	}
	if err := h.initMetrics(opts.Namespace); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return h, nil
}

func (h *PrometheusHook) initMetrics(ns string) error {
	h.scansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "scans_total",
		Help: "Scans finished, by final status",
	}, []string{"status"})

	h.programsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "programs_processed_total",
		Help: "Programs the pipeline has finished with",
	})

	h.targetsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "targets_probed_total",
		Help: "Scope targets probed, by status class",
	}, []string{"status_class"})

	h.verdictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "verdicts_total",
		Help: "Analysis verdicts, by kind and outcome",
	}, []string{"kind", "good"})

	h.errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "errors_total",
		Help: "Pipeline step failures, by stage",
	}, []string{"stage"})

	h.progressRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "scan_progress_ratio",
		Help: "Programs done over programs selected for the running scan",
	})

	h.scanning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "scan_in_progress",
		Help: "1 while a scan is running",
	})

	h.probeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns, Name: "probe_duration_seconds",
		Help:    "Probe plus analysis time per target",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
	})

	h.scoreHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Name: "score",
		Help:    "Distribution of suitability scores",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	}, []string{"kind"})

	h.lastDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "last_scan_duration_seconds",
		Help: "Wall time of the most recent finished scan",
	})

	collectors := []prometheus.Collector{
		h.scansTotal, h.programsTotal, h.targetsTotal, h.verdictsTotal,
		h.errorsTotal, h.progressRatio, h.scanning, h.probeLatency,
		h.scoreHistogram, h.lastDuration,
	}
	for _, c := range collectors {
		if err := h.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (h *PrometheusHook) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorLog:          slog.NewLogLogger(h.logger.Handler(), slog.LevelWarn),
	})
}

// Registry exposes the private registry, mainly for tests.
func (h *PrometheusHook) Registry() *prometheus.Registry {
	return h.registry
}

// OnEvent updates the metrics.
func (h *PrometheusHook) OnEvent(_ context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch e := event.(type) {
	case *events.StartEvent:
		h.scanning.Set(1)
		h.progressRatio.Set(0)
		h.lastCurrent = 0
	case *events.ProgressEvent:
		h.handleProgress(e)
	case *events.TargetEvent:
		h.handleTarget(e)
	case *events.ErrorEvent:
		h.errorsTotal.WithLabelValues(string(e.Stage)).Inc()
	case *events.CompleteEvent:
		status := "complete"
		if !e.Success {
			status = "error"
		}
		h.scansTotal.WithLabelValues(status).Inc()
		h.scanning.Set(0)
		h.lastDuration.Set(e.DurationSec)
	}
	return nil
}

func (h *PrometheusHook) handleProgress(e *events.ProgressEvent) {
	p := e.Progress
	if p.Total > 0 {
		h.progressRatio.Set(float64(p.Current) / float64(p.Total))
	}
	// current only grows within a scan; each step is one finished program
	if p.Current > h.lastCurrent {
		h.programsTotal.Add(float64(p.Current - h.lastCurrent))
		h.lastCurrent = p.Current
	}
}

func (h *PrometheusHook) handleTarget(e *events.TargetEvent) {
	h.targetsTotal.WithLabelValues(statusClass(e.Probe.StatusCode)).Inc()
	if e.LatencyMs > 0 {
		h.probeLatency.Observe(e.LatencyMs / 1000.0)
	}
	if e.Analysis == nil {
		return
	}
	a := e.Analysis
	h.verdictsTotal.WithLabelValues("reflected_stored", strconv.FormatBool(a.GoodReflectedStored)).Inc()
	h.verdictsTotal.WithLabelValues("dom", strconv.FormatBool(a.GoodDOM)).Inc()
	h.scoreHistogram.WithLabelValues("reflected_stored").Observe(float64(a.ReflectedStoredScore))
	h.scoreHistogram.WithLabelValues("dom").Observe(float64(a.DOMScore))
}

// EventTypes returns the event types this hook handles.
func (h *PrometheusHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeStart,
		events.EventTypeProgress,
		events.EventTypeTarget,
		events.EventTypeError,
		events.EventTypeComplete,
	}
}

// statusClass buckets a probe status for use as a label.
func statusClass(code *int) string {
	if code == nil {
		return "unreachable"
	}
	switch c := *code; {
	case c >= 200 && c < 300:
		return "2xx"
	case c >= 300 && c < 400:
		return "3xx"
	case c >= 400 && c < 500:
		return "4xx"
	case c >= 500:
		return "5xx"
	default:
		return "other"
	}
}
