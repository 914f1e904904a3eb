package tracing

import (
	"context"
	"time"

	"github.com/Ramsey-B/nettle/internal/tracing/exporters"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config selects the span exporter
type Config struct {
	ServiceName  string
	OTLPEndpoint string
	OTLPProtocol string
	OTLPInsecure bool
}

// Setup installs a tracer provider and returns its shutdown function.
// Without an OTLP endpoint spans are recorded and discarded.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter = &exporters.DiscardExporter{}
	if cfg.OTLPEndpoint != "" {
		otlpCfg := exporters.DefaultOTLPConfig()
		otlpCfg.Endpoint = cfg.OTLPEndpoint
		otlpCfg.Insecure = cfg.OTLPInsecure
		if cfg.OTLPProtocol != "" {
			otlpCfg.Protocol = cfg.OTLPProtocol
		}
		otlpExporter, err := exporters.NewOTLPExporter(ctx, otlpCfg)
		if err != nil {
			return nil, err
		}
		exporter = otlpExporter
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	SetTracer(provider.Tracer(cfg.ServiceName))

	return provider.Shutdown, nil
}
