// Package telemetry centralizes logger/tracer/meter construction so
// packages can call telemetry.Logger(), telemetry.Tracer(name), and
// telemetry.Meter(name) without importing zap/otel setup directly,
// mirroring the call-site shape of haiku.go's telemetry.Meter/Tracer
// calls (the teacher's own internal/telemetry package was filtered out
// of the retrieval pack; only those call sites survived).
package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	loggerOnce sync.Once
	logger     *zap.Logger
)

// Init installs process-wide defaults: a production zap logger (or, if
// debug is true, a development one with human-readable console output).
// Safe to call multiple times; only the first call takes effect. Callers
// that never call Init still get a usable logger (Logger lazily falls
// back to zap.NewProduction) and a usable tracer/meter (the OTel global
// providers are no-ops until an SDK provider is registered elsewhere).
func Init(debug bool) error {
	var err error
	loggerOnce.Do(func() {
		if debug {
			logger, err = zap.NewDevelopment()
			return
		}
		logger, err = zap.NewProduction()
	})
	return err
}

// Logger returns the process logger, initializing a default production
// logger on first use if Init was never called.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		logger, _ = zap.NewProduction()
	})
	return logger
}

// Tracer returns a named tracer from the global OTel trace provider.
// Spans are no-ops until a real TracerProvider is registered (e.g. by
// cmd/tract wiring an OTLP exporter), matching the "delegating provider"
// comment pattern of dolt/store.go's doltTracer.
func Tracer(name string) trace.Tracer { return otel.Tracer(name) }

// Meter returns a named meter from the global OTel metric provider, same
// no-op-until-registered contract as Tracer.
func Meter(name string) metric.Meter { return otel.Meter(name) }
