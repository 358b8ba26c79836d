package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/netprobe/tool"
)

// ToolObserver records dispatch and strategy signals into OpenTelemetry.
type ToolObserver struct {
	tracer trace.Tracer

	invocations     metric.Int64Counter
	attempts        metric.Int64Counter
	latency         metric.Float64Histogram
	strategyLatency metric.Float64Histogram
}

// NewToolObserver creates a tool observer bound to the provided meter/tracer.
func NewToolObserver(meter metric.Meter, tracer trace.Tracer) (*ToolObserver, error) {
	invocations, err := meter.Int64Counter(
		"netprobe.tool.invocations",
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}
	attempts, err := meter.Int64Counter(
		"netprobe.tool.strategy.attempts",
		metric.WithDescription("Number of strategy attempts"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"netprobe.tool.latency",
		metric.WithDescription("Tool latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	strategyLatency, err := meter.Float64Histogram(
		"netprobe.tool.strategy.latency",
		metric.WithDescription("Strategy latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ToolObserver{
		tracer:          tracer,
		invocations:     invocations,
		attempts:        attempts,
		latency:         latency,
		strategyLatency: strategyLatency,
	}, nil
}

// ObserveInvoke records one dispatched invocation.
func (o *ToolObserver) ObserveInvoke(observation tool.InvokeObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", observation.Operation),
		attribute.Bool("success", observation.Success),
	}
	if observation.ErrorCode != "" {
		attrs = append(attrs, attribute.String("error_code", observation.ErrorCode))
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.invocations.Add(ctx, 1, options)
	o.latency.Record(ctx, seconds(observation.DurationMS), options)

	spanAttrs := append(attrs, attribute.String("invocation_id", observation.InvocationID))
	o.span("tool.invoke", observation.DurationMS, spanAttrs, observation.Success, observation.ErrorCode)
}

// ObserveStrategy records one strategy attempt.
func (o *ToolObserver) ObserveStrategy(observation tool.StrategyObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", observation.Operation),
		attribute.String("strategy", observation.Strategy),
		attribute.String("kind", string(observation.Kind)),
		attribute.Bool("success", observation.Success),
	}
	if observation.ErrorCode != "" {
		attrs = append(attrs, attribute.String("error_code", observation.ErrorCode))
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.attempts.Add(ctx, 1, options)
	o.strategyLatency.Record(ctx, seconds(observation.DurationMS), options)

	spanAttrs := append(attrs, attribute.Int("attempt", observation.Attempt))
	o.span("tool.strategy", observation.DurationMS, spanAttrs, observation.Success, observation.ErrorCode)
}

// span reconstructs a finished span from an observation's duration.
func (o *ToolObserver) span(name string, durationMS int64, attrs []attribute.KeyValue, success bool, errorCode string) {
	if o.tracer == nil {
		return
	}
	end := time.Now()
	start := end.Add(-time.Duration(durationMS) * time.Millisecond)
	_, span := o.tracer.Start(context.Background(), name,
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(start),
	)
	if success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, errorCode)
	}
	span.End(trace.WithTimestamp(end))
}

func seconds(ms int64) float64 {
	return float64(time.Duration(ms)*time.Millisecond) / float64(time.Second)
}

var _ tool.Observer = (*ToolObserver)(nil)
