// Package telemetry exports pipeline traces through OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/smallnest/researchgraph/log"
)

// Config controls initialization of the trace exporter.
type Config struct {
	ServiceName string
	Disable     bool

	// Output receives the exported spans as JSON. Defaults to stderr.
	Output      io.Writer
	PrettyPrint bool
}

// Init installs a global tracer provider that exports to cfg.Output. The
// returned shutdown function flushes pending spans.
func Init(ctx context.Context, cfg Config, logger log.Logger) (func(context.Context) error, error) {
	if cfg.Disable {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "researchgraph"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if logger == nil {
		logger = log.NoOpLogger{}
	}

	opts := []stdouttrace.Option{stdouttrace.WithWriter(cfg.Output)}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exp, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))),
	)
	otel.SetTracerProvider(tp)
	logger.Debug("trace exporter configured for %s", cfg.ServiceName)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("telemetry shutdown failed: %v", err)
			return err
		}
		return nil
	}, nil
}
