// Package tracing installs the OpenTelemetry tracer provider used by the
// model adapters. Finished spans are written to the application log.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/hugo-lorenzo-mato/medpanel/internal/logging"
)

const (
	defaultBatchTimeout = 5 * time.Second
	serviceName         = "medpanel"
)

// Init creates a tracer provider exporting to logger and installs it as the
// global provider. When enabled is false the provider records nothing and
// the global provider is left untouched.
func Init(enabled bool, version string, logger *logging.Logger) *sdktrace.TracerProvider {
	if !enabled {
		return sdktrace.NewTracerProvider()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(NewLogExporter(logger), sdktrace.WithBatchTimeout(defaultBatchTimeout)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp
}

// Shutdown flushes pending spans and stops the provider.
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// LogExporter writes each finished span as one debug log line.
type LogExporter struct {
	logger *logging.Logger
}

// NewLogExporter creates an exporter writing to logger.
func NewLogExporter(logger *logging.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// ExportSpans logs a batch of spans.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		args := []any{
			"span", s.Name(),
			"trace_id", s.SpanContext().TraceID().String(),
			"duration", s.EndTime().Sub(s.StartTime()),
			"status", s.Status().Code.String(),
		}
		for _, kv := range s.Attributes() {
			args = append(args, string(kv.Key), kv.Value.Emit())
		}
		if desc := s.Status().Description; desc != "" {
			args = append(args, "error", desc)
		}
		e.logger.DebugContext(ctx, "span finished", args...)
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *LogExporter) Shutdown(context.Context) error {
	return nil
}
