// Package observe wires OpenTelemetry into the bridge: trace and metric
// providers, instrumented HTTP server routing and an instrumented outbound
// transport for the purge client.
package observe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/edgepurge/akamai-bridge/internal/config"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// Configure bootstraps the OTel SDK according to configuration, returning a
// shutdown function to be invoked when the server stops. When telemetry is
// disabled the returned shutdown is a no-op.
func Configure(ctx context.Context, cfg config.ObserveConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		log.Info().Msg("telemetry: disabled")
		return func(context.Context) error { return nil }, nil
	}

	configureSDKLogging(cfg)

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource configuration failed: %w", err)
	}

	var shutdownHooks []func(context.Context) error

	tracerProvider, err := configureTracing(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tracerProvider)
	shutdownHooks = append(shutdownHooks, tracerProvider.Shutdown)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.MetricsEnabled {
		meterProvider, err := configureMetrics(ctx, cfg, res)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(meterProvider)
		shutdownHooks = append(shutdownHooks, meterProvider.Shutdown)
	}

	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, hook := range shutdownHooks {
			errs = append(errs, hook(ctx))
		}
		return errors.Join(errs...)
	}

	return shutdown, nil
}

func configureTracing(ctx context.Context, cfg config.ObserveConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.Type {
	case "grpc":
		exporter, err = otlptracegrpc.New(ctx)
	case "stdout":
		exporter, err = stdouttrace.New()
	default:
		err = fmt.Errorf("unknown telemetry exporter type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("trace exporter configuration failed: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(time.Duration(cfg.TraceBatchTimeoutSeconds)*time.Second),
		),
		sdktrace.WithResource(res),
	), nil
}

func configureMetrics(ctx context.Context, cfg config.ObserveConfig, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	var exporter sdkmetric.Exporter
	var err error

	switch cfg.Type {
	case "grpc":
		exporter, err = otlpmetricgrpc.New(ctx)
	case "stdout":
		exporter, err = stdoutmetric.New()
	default:
		err = fmt.Errorf("unknown telemetry exporter type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("metric exporter configuration failed: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(time.Duration(cfg.MetricReadIntervalSeconds)*time.Second),
		)),
		sdkmetric.WithResource(res),
	), nil
}

// HTTPTransport wraps the outbound transport with OTel instrumentation so
// purge round-trips show up as client spans, optionally with connection
// level tracing.
func HTTPTransport(base http.RoundTripper, cfg config.ObserveConfig) http.RoundTripper {
	if !cfg.Enabled || !cfg.HTTPTransportEnabled {
		return base
	}

	opts := []otelhttp.Option{}
	if cfg.HTTPConnectionTraceEnabled {
		opts = append(opts, otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}))
	}

	return otelhttp.NewTransport(base, opts...)
}

// configureSDKLogging routes OTel SDK diagnostics through zerolog at the
// configured level.
func configureSDKLogging(cfg config.ObserveConfig) {
	level, err := zerolog.ParseLevel(cfg.SDKLogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	sdkLogger := log.Level(level).With().Str("component", "otel").Logger()
	otel.SetLogger(zerologr.New(&sdkLogger))

	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		sdkLogger.Warn().Err(err).Msg("telemetry error")
	}))
}
