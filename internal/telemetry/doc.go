// Package telemetry provides OpenTelemetry instrumentation for actionitems.
//
// Spans and metrics are exported over OTLP (gRPC or HTTP) to a collector.
// Prometheus metrics served on /metrics are separate and always on.
//
// # Usage
//
//	cfg := telemetry.FromConfig(appCfg.Telemetry, version)
//	tel, err := telemetry.New(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
// New installs the providers as the otel globals. The extractor, arbiter,
// embeddings and http packages get their tracers and meters from the globals.
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc
//	  sample_rate: 1.0
//	  metrics: true
//	  export_interval: "15s"
//
// # Testing
//
// Recorder keeps spans and metrics in memory:
//
//	rec := telemetry.NewRecorder().Install(t)
//	ex, _ := extractor.New(opts, deps, logger)
//	ex.Extract(ctx, doc)
//	span := rec.RequireSpan(t, "extractor.extract")
package telemetry
