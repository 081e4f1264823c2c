package model

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

// TracerName identifies spans emitted by model adapters.
const TracerName = "medpanel/model"

// Traced records one span per model call.
type Traced struct {
	model  core.Model
	tracer trace.Tracer
}

// NewTraced wraps m with spans from tracer. A nil tracer uses the global
// provider.
func NewTraced(m core.Model, tracer trace.Tracer) *Traced {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &Traced{model: m, tracer: tracer}
}

// Name returns the wrapped model's name.
func (t *Traced) Name() string {
	return t.model.Name()
}

// Submit runs the call inside a "model.Submit" span.
func (t *Traced) Submit(ctx context.Context, req core.Request) (*core.Response, error) {
	ctx, span := t.tracer.Start(ctx, "model.Submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("model.name", t.model.Name()),
			attribute.Float64("model.temperature", req.Temperature),
			attribute.Int("model.examples", len(req.Examples)),
			attribute.Int("model.prompt_length", len(req.Prompt)),
		))
	defer span.End()

	resp, err := t.model.Submit(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.category", string(core.GetCategory(err))))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("model.response_model", resp.Model),
		attribute.Int("model.tokens.input", resp.Usage.Input),
		attribute.Int("model.tokens.output", resp.Usage.Output),
	)
	span.SetStatus(codes.Ok, "")
	return resp, nil
}
