// Package tracing opens an OpenTelemetry span around every step of a pipeline.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/askiada/go-process/pkg/process"
	"github.com/askiada/go-process/pkg/process/model"
)

const instrumentationName = "github.com/askiada/go-process/pkg/process/tracing"

type Option func(pt *pipelineTracer)

// WithTracerProvider replaces the global tracer provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(pt *pipelineTracer) {
		pt.provider = provider
	}
}

type pipelineTracer struct {
	pipeline string
	provider trace.TracerProvider
	tracer   trace.Tracer
}

// PipelineTracer starts a span named after the step before it runs and ends it with the outcome of the
// step. The step receives the context holding its span.
func PipelineTracer(pipeline string, opts ...Option) model.PipelineOption {
	pt := &pipelineTracer{pipeline: pipeline}
	for _, opt := range opts {
		opt(pt)
	}

	return pt
}

func (pt *pipelineTracer) New() error {
	if pt.provider == nil {
		pt.provider = otel.GetTracerProvider()
	}
	pt.tracer = pt.provider.Tracer(instrumentationName)

	return nil
}

func (pt *pipelineTracer) PrepareStep(*model.StepInfo) error {
	return nil
}

func (pt *pipelineTracer) BeforeStep(ctx context.Context, step *model.StepInfo) (context.Context, error) {
	ctx, _ = pt.tracer.Start(ctx, step.Name,
		trace.WithAttributes(
			attribute.String("process.pipeline", pt.pipeline),
			attribute.String("process.step.type", string(step.Type)),
			attribute.Int("process.step.index", step.Index),
		),
	)

	return ctx, nil
}

func (pt *pipelineTracer) AfterStep(ctx context.Context, _ *model.StepInfo, elapsed time.Duration, stepErr error) error {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(attribute.Int64("process.step.duration_ms", elapsed.Milliseconds()))
	switch {
	case process.IsEarlyEscape(stepErr):
		span.SetAttributes(attribute.Bool("process.escaped", true))
		span.SetStatus(codes.Ok, stepErr.Error())
	case stepErr != nil:
		span.RecordError(stepErr)
		span.SetStatus(codes.Error, stepErr.Error())
	default:
		span.SetStatus(codes.Ok, "")
	}

	return nil
}

func (pt *pipelineTracer) Finish() error {
	return nil
}
