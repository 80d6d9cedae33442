// Package observability wires OpenTelemetry metrics and traces.
//
// Both providers are optional. When disabled the global no-op providers
// stay in place and every instrument and span below is free:
//
//	shutdown, err := observability.Setup(ctx, cfg, "diarizer", version.Version, "production")
//	defer shutdown(ctx)
//
//	metrics, _ := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
//	ctx, span := observability.StartSpan(ctx, observability.SpanDiarize)
//	defer span.End()
package observability
