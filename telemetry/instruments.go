package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName scopes every tracer and meter in this module.
const InstrumentationName = "github.com/richinex/cair"

// Attribute keys shared by registry and pipeline spans and metrics.
const (
	AttrRole      = "cair.role"
	AttrProvider  = "cair.provider"
	AttrModel     = "cair.model"
	AttrStage     = "cair.stage"
	AttrIteration = "cair.iteration"
	AttrRunID     = "cair.run_id"
	AttrErrorKind = "cair.error.kind"
)

// Tracer returns the module tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Instruments holds the dispatch and pipeline metrics.
type Instruments struct {
	dispatchTotal  metric.Int64Counter
	dispatchErrors metric.Int64Counter
	iterations     metric.Int64Counter
	quality        metric.Float64Histogram
}

// NewInstruments creates the instruments on the global meter provider.
func NewInstruments() (*Instruments, error) {
	meter := otel.Meter(InstrumentationName)

	dispatchTotal, err := meter.Int64Counter(
		"cair.dispatch.total",
		metric.WithDescription("Dispatches by role and provider"),
	)
	if err != nil {
		return nil, err
	}

	dispatchErrors, err := meter.Int64Counter(
		"cair.dispatch.errors",
		metric.WithDescription("Failed dispatches by role and error kind"),
	)
	if err != nil {
		return nil, err
	}

	iterations, err := meter.Int64Counter(
		"cair.pipeline.iterations",
		metric.WithDescription("Review/refine rounds executed"),
	)
	if err != nil {
		return nil, err
	}

	quality, err := meter.Float64Histogram(
		"cair.pipeline.quality",
		metric.WithDescription("Quality score of each evaluated draft"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		dispatchTotal:  dispatchTotal,
		dispatchErrors: dispatchErrors,
		iterations:     iterations,
		quality:        quality,
	}, nil
}

// RecordDispatch counts one dispatch. A non-empty errKind also counts an error.
func (in *Instruments) RecordDispatch(ctx context.Context, role, provider, errKind string) {
	if in == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrRole, role),
		attribute.String(AttrProvider, provider),
	)
	in.dispatchTotal.Add(ctx, 1, attrs)
	if errKind != "" {
		in.dispatchErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String(AttrRole, role),
			attribute.String(AttrErrorKind, errKind),
		))
	}
}

// RecordIteration counts one review/refine round and its score.
func (in *Instruments) RecordIteration(ctx context.Context, score float64) {
	if in == nil {
		return
	}
	in.iterations.Add(ctx, 1)
	in.quality.Record(ctx, score)
}
