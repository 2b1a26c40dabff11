package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/inkcircle/inkcircle-server/internal/config"
	"github.com/inkcircle/inkcircle-server/internal/logger"
	"github.com/inkcircle/inkcircle-server/internal/metrics"
	"github.com/inkcircle/inkcircle-server/internal/tracing"
)

// ProvideMetrics provides the Prometheus registry and collectors.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}

// TracingHandle wraps the tracer provider with Shutdownable.
type TracingHandle struct {
	*tracing.Provider
}

// Shutdown implements do.Shutdownable.
func (h *TracingHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Provider.Shutdown(ctx)
}

// ProvideTracing installs the global OpenTelemetry tracer provider.
func ProvideTracing(i do.Injector) (*TracingHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	p, err := tracing.Setup(context.Background(), tracing.Config{
		Endpoint:    cfg.Tracing.OTLPEndpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     Version,
		Environment: cfg.App.Environment,
	}, log.Logger)
	if err != nil {
		return nil, err
	}
	return &TracingHandle{Provider: p}, nil
}
