package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/diarizer/logger"
)

// InstrumentationName scopes the service's meters and tracers.
const InstrumentationName = "github.com/kbukum/diarizer"

// MeterConfig configures the OTLP meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Insecure       bool
	Interval       time.Duration
}

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
// Shut it down on exit to flush.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Outcome attribute values.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
)

// Metrics holds the service's instruments. A nil *Metrics records nothing.
type Metrics struct {
	httpRequests     metric.Int64Counter
	httpDuration     metric.Float64Histogram
	pipelineLoads    metric.Int64Counter
	pipelineLoadTime metric.Float64Histogram
	diarizations     metric.Int64Counter
	diarizeDuration  metric.Float64Histogram
	normalizations   metric.Int64Counter
	cacheLookups     metric.Int64Counter
	errors           metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.httpRequests, "http.server.requests", "HTTP requests by route and status"},
		{&m.pipelineLoads, "pipeline.loads", "Pipeline construction attempts by outcome"},
		{&m.diarizations, "diarization.calls", "Model calls by outcome"},
		{&m.normalizations, "audio.normalizations", "Normalization attempts by outcome"},
		{&m.cacheLookups, "diarization.cache.lookups", "Result cache lookups by outcome"},
		{&m.errors, "errors", "Errors by type and component"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.httpDuration, "http.server.duration", "HTTP request duration"},
		{&m.pipelineLoadTime, "pipeline.load.duration", "Pipeline construction duration"},
		{&m.diarizeDuration, "diarization.duration", "Model call duration"},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("s")); err != nil {
			return nil, fmt.Errorf("creating %s histogram: %w", h.name, err)
		}
	}

	return &m, nil
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordPipelineLoad records a construction attempt.
func (m *Metrics) RecordPipelineLoad(ctx context.Context, backend, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("backend", backend), attribute.String("outcome", outcome))
	m.pipelineLoads.Add(ctx, 1, attrs)
	m.pipelineLoadTime.Record(ctx, d.Seconds(), attrs)
}

// RecordDiarize records a model call.
func (m *Metrics) RecordDiarize(ctx context.Context, backend, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("backend", backend), attribute.String("outcome", outcome))
	m.diarizations.Add(ctx, 1, attrs)
	m.diarizeDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordNormalize records whether normalization succeeded or fell back.
func (m *Metrics) RecordNormalize(ctx context.Context, normalizer, outcome string) {
	if m == nil {
		return
	}
	m.normalizations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("normalizer", normalizer),
		attribute.String("outcome", outcome),
	))
}

// RecordCacheLookup records a result cache hit or miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	outcome := OutcomeMiss
	if hit {
		outcome = OutcomeHit
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
