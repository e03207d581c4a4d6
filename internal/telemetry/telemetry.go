// Package telemetry wires tracer and meter providers the way beads'
// internal/hooks package opens spans directly off the global
// go.opentelemetry.io/otel providers (otel.Tracer("..."), span.RecordError,
// span.SetStatus) rather than threading a custom logger type through every
// call site. Eidetica's hot paths (commit, sync flush, handshake) call
// telemetry.Tracer()/Meter() the same way.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/eidetica/eidetica"

// Provider owns the tracer and meter providers installed as the process
// globals; both are nil when Install was called with enabled false.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// Install configures global tracer/meter providers. When enabled is false,
// it leaves the otel globals untouched — otel.Tracer/otel.Meter already
// default to inert no-op implementations until a provider is installed, so
// every call site stays unconditional, matching "nothing blocks on
// telemetry export failing". When enabled is true, w receives newline-JSON
// span and metric dumps (stdout by default); passing nil selects os.Stdout.
func Install(enabled bool, w io.Writer) (*Provider, error) {
	if !enabled {
		return &Provider{}, nil
	}
	if w == nil {
		w = os.Stdout
	}

	res, err := resource.New(context.Background(), resource.WithAttributes())
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	return &Provider{tracerProvider: tp, meterProvider: mp}, nil
}

// Shutdown flushes and releases the installed providers; a no-op Provider
// (from a disabled Install) does nothing.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: shutdown tracer provider: %w", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: shutdown meter provider: %w", err)
		}
	}
	return nil
}

// Tracer returns the package-wide tracer, off whichever provider is
// currently installed globally (matching beads' otel.Tracer(name) call
// sites — no provider handle needs to be threaded through callers).
func Tracer() trace.Tracer { return otel.Tracer(instrumentationName) }

// Meter returns the package-wide meter.
func Meter() metric.Meter { return otel.Meter(instrumentationName) }
