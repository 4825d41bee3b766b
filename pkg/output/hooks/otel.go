package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/duration"
	"github.com/waftester/bountyscout/pkg/output/dispatcher"
	"github.com/waftester/bountyscout/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*OTelHook)(nil)

// OTelHook exports one trace per scan to an OpenTelemetry collector. The
// scan is the root span; each evaluated target becomes a child span and
// failures are recorded as span events.
type OTelHook struct {
	opts           OTelOptions
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	mu       sync.Mutex
	rootSpan trace.Span
	rootCtx  context.Context
	closed   bool
}

// OTelOptions configures the OpenTelemetry hook.
type OTelOptions struct {
	// Endpoint is the OTLP/gRPC endpoint (default "localhost:4317").
	Endpoint string

	// ServiceName is the service name for traces (default "bountyscout").
	ServiceName string

	// Insecure uses a plaintext connection.
	Insecure bool

	// Headers are sent with every export.
	Headers map[string]string

	// ShutdownTimeout bounds the final flush (default 5s).
	ShutdownTimeout time.Duration

	// ConnectionTimeout bounds exporter setup (default 10s).
	ConnectionTimeout time.Duration
}

func (o *OTelOptions) applyDefaults() {
	if o.ServiceName == "" {
		o.ServiceName = defaults.ToolName
	}
	if o.Endpoint == "" {
		o.Endpoint = defaults.OTelEndpoint
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = duration.TelemetryShutdown
	}
	if o.ConnectionTimeout == 0 {
		o.ConnectionTimeout = duration.TelemetryConnect
	}
}

// NewOTelHook creates a hook exporting over OTLP/gRPC. Connection failures
// surface at export time and never block the scan.
func NewOTelHook(opts OTelOptions) (*OTelHook, error) {
	opts.applyDefaults()

	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
	defer cancel()
	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("otel: create exporter: %w", err)
	}

	return NewOTelHookWithExporter(exporter, opts), nil
}

// NewOTelHookWithExporter builds the hook on any span exporter. Spans are
// batched.
func NewOTelHookWithExporter(exporter sdktrace.SpanExporter, opts OTelOptions) *OTelHook {
	opts.applyDefaults()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "scanner"),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	return &OTelHook{
		opts:           opts,
		tracerProvider: tp,
		tracer:         tp.Tracer(defaults.ToolName + "/scan"),
	}
}

// OnEvent records the event in the current scan trace.
func (h *OTelHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.StartEvent:
		h.handleStart(ctx, e)
	case *events.TargetEvent:
		h.handleTarget(e)
	case *events.ErrorEvent:
		h.handleError(e)
	case *events.CompleteEvent:
		h.handleComplete(e)
	}
	return nil
}

func (h *OTelHook) handleStart(ctx context.Context, start *events.StartEvent) {
	if h.rootSpan != nil {
		h.rootSpan.End()
	}
	// The scan outlives the request that started it.
	spanCtx, span := h.tracer.Start(context.WithoutCancel(ctx), "bountyscout.scan",
		trace.WithTimestamp(start.Timestamp()),
		trace.WithAttributes(
			attribute.String("scan_id", start.ScanID()),
			attribute.Int("programs", start.Programs),
			attribute.Int("limit", start.Config.Limit),
			attribute.Int("scope_limit", start.Config.ScopeLimit),
			attribute.Bool("require.submission", start.Requirements.Submission),
			attribute.Bool("require.bounties", start.Requirements.Bounties),
			attribute.Bool("require.open_scope", start.Requirements.OpenScope),
			attribute.Bool("require.safe_harbor", start.Requirements.SafeHarbor),
		),
	)
	h.rootSpan = span
	h.rootCtx = spanCtx
}

func (h *OTelHook) handleTarget(e *events.TargetEvent) {
	if h.rootSpan == nil {
		return
	}
	end := e.Timestamp()
	start := end.Add(-time.Duration(e.LatencyMs * float64(time.Millisecond)))

	attrs := []attribute.KeyValue{
		attribute.String("program", e.Program),
		attribute.String("target", e.Target),
		attribute.String("url.full", e.URL),
		attribute.Bool("has_auth_indicators", e.Probe.HasAuthIndicators),
	}
	if e.Probe.StatusCode != nil {
		attrs = append(attrs, attribute.Int("http.response.status_code", *e.Probe.StatusCode))
	}
	if a := e.Analysis; a != nil {
		attrs = append(attrs,
			attribute.Int("score.reflected_stored", a.ReflectedStoredScore),
			attribute.Bool("good.reflected_stored", a.GoodReflectedStored),
			attribute.Int("score.dom", a.DOMScore),
			attribute.Bool("good.dom", a.GoodDOM),
			attribute.StringSlice("frameworks", a.Frameworks),
		)
	}

	_, span := h.tracer.Start(h.rootCtx, "bountyscout.target",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(start),
		trace.WithAttributes(attrs...),
	)
	if !e.Reachable() {
		span.SetStatus(codes.Error, "unreachable")
	}
	span.End(trace.WithTimestamp(end))
}

func (h *OTelHook) handleError(e *events.ErrorEvent) {
	if h.rootSpan == nil {
		return
	}
	h.rootSpan.AddEvent("step_failed", trace.WithAttributes(
		attribute.String("stage", string(e.Stage)),
		attribute.String("program", e.Program),
		attribute.String("target", e.Target),
		attribute.String("error", e.Message),
		attribute.Bool("fatal", e.Fatal),
	))
}

func (h *OTelHook) handleComplete(e *events.CompleteEvent) {
	if h.rootSpan == nil {
		return
	}
	h.rootSpan.SetAttributes(
		attribute.Int("totals.programs", e.Programs),
		attribute.Int("totals.targets", e.Targets),
		attribute.Int("totals.reachable", e.Reachable),
		attribute.Int("totals.analyzed", e.Analyzed),
		attribute.Int("totals.good_targets", e.GoodTargets),
		attribute.Int("totals.errors", e.Errors),
	)
	if e.Success {
		h.rootSpan.SetStatus(codes.Ok, "")
	} else {
		h.rootSpan.SetStatus(codes.Error, e.Message)
	}
	h.rootSpan.End(trace.WithTimestamp(e.Timestamp()))
	h.rootSpan = nil
	h.rootCtx = nil
}

// EventTypes returns the event types this hook handles.
func (h *OTelHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeStart,
		events.EventTypeTarget,
		events.EventTypeError,
		events.EventTypeComplete,
	}
}

// Close ends any open span and flushes pending telemetry.
func (h *OTelHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.rootSpan != nil {
		h.rootSpan.End()
		h.rootSpan = nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
	defer cancel()
	if err := h.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("otel: shutdown tracer provider: %w", err)
	}
	return nil
}

// Endpoint returns the OTLP endpoint being used.
func (h *OTelHook) Endpoint() string {
	return h.opts.Endpoint
}

// ServiceName returns the service name being used.
func (h *OTelHook) ServiceName() string {
	return h.opts.ServiceName
}
