package glimpse

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"
)

// instrumentationName labels the runtime's own telemetry.
const instrumentationName = "github.com/glimpse-go/glimpse"

// Logger is the logging surface the runtime requires. Messages are
// context-first with structured key-value pairs.
type Logger interface {
	// Debug emits a debug-level message.
	Debug(ctx context.Context, msg string, keyvals ...any)

	// Info emits an info-level message.
	Info(ctx context.Context, msg string, keyvals ...any)

	// Warn emits a warning-level message.
	Warn(ctx context.Context, msg string, keyvals ...any)

	// Error emits an error-level message.
	Error(ctx context.Context, err error, msg string, keyvals ...any)
}

// clueLogger delegates to goa.design/clue/log. Formatting and debug settings
// come from the context (set via log.Context and log.WithFormat/WithDebug).
type clueLogger struct{}

// NewClueLogger constructs the default Logger backed by clue.
func NewClueLogger() Logger {
	return clueLogger{}
}

func (clueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, kvToFielders(msg, keyvals)...)
}

func (clueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	log.Info(ctx, kvToFielders(msg, keyvals)...)
}

func (clueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	log.Warn(ctx, kvToFielders(msg, keyvals)...)
}

func (clueLogger) Error(ctx context.Context, err error, msg string, keyvals ...any) {
	log.Error(ctx, err, kvToFielders(msg, keyvals)...)
}

// kvToFielders converts a message plus flat key-value pairs to clue fielders.
func kvToFielders(msg string, keyvals []any) []log.Fielder {
	fielders := make([]log.Fielder, 0, 1+len(keyvals)/2)
	fielders = append(fielders, log.KV{K: "msg", V: msg})
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		fielders = append(fielders, log.KV{K: key, V: keyvals[i+1]})
	}
	return fielders
}

// noopLogger discards everything. Used in tests.
type noopLogger struct{}

// NewNoopLogger constructs a Logger that discards all messages.
func NewNoopLogger() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(ctx context.Context, msg string, keyvals ...any)            {}
func (noopLogger) Info(ctx context.Context, msg string, keyvals ...any)             {}
func (noopLogger) Warn(ctx context.Context, msg string, keyvals ...any)             {}
func (noopLogger) Error(ctx context.Context, err error, msg string, keyvals ...any) {}

// logCritical reports a failure at the highest severity the runtime uses for
// faults it must never propagate, such as result-rendering errors that occur
// after the host's own work is done.
func logCritical(ctx context.Context, logger Logger, err error, msg string, keyvals ...any) {
	keyvals = append(keyvals, "severity", "critical")
	logger.Error(ctx, err, msg, keyvals...)
}

// runtimeMetrics holds the runtime's OTEL instruments. Instrument creation
// errors leave the instrument nil and the recording helpers skip it.
type runtimeMetrics struct {
	requestsBegun     metric.Int64Counter
	resourcesExecuted metric.Int64Counter
	providerFailures  metric.Int64Counter
}

// newRuntimeMetrics builds the counters from the global MeterProvider,
// configured by the host (typically via clue.ConfigureOpenTelemetry).
func newRuntimeMetrics() *runtimeMetrics {
	meter := otel.Meter(instrumentationName)
	m := &runtimeMetrics{}
	m.requestsBegun, _ = meter.Int64Counter("glimpse.requests.begun")
	m.resourcesExecuted, _ = meter.Int64Counter("glimpse.resources.executed")
	m.providerFailures, _ = meter.Int64Counter("glimpse.providers.failures")
	return m
}

func (m *runtimeMetrics) addRequestBegun(ctx context.Context, mode RequestHandlingMode) {
	if m.requestsBegun == nil {
		return
	}
	m.requestsBegun.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode.String())))
}

func (m *runtimeMetrics) addResourceExecuted(ctx context.Context, name string, outcome string) {
	if m.resourcesExecuted == nil {
		return
	}
	m.resourcesExecuted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", name),
		attribute.String("outcome", outcome),
	))
}

func (m *runtimeMetrics) addProviderFailure(ctx context.Context, provider string, event RuntimeEvent) {
	if m.providerFailures == nil {
		return
	}
	m.providerFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("event", event.String()),
	))
}

// newTracer returns the runtime tracer from the global TracerProvider.
func newTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
