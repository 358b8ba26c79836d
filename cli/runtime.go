package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/petal-labs/netprobe/config"
	"github.com/petal-labs/netprobe/netdiag"
	probeotel "github.com/petal-labs/netprobe/otel"
	"github.com/petal-labs/netprobe/tool"
)

// appRuntime bundles the dispatcher with the telemetry it reports to.
type appRuntime struct {
	dispatcher *tool.Dispatcher
	providers  *probeotel.Providers
}

func buildRuntime(ctx context.Context, cfg config.File, version string, logger *slog.Logger) (*appRuntime, error) {
	providers, err := probeotel.NewProviders(ctx, probeotel.Config{
		ServiceName:    cfg.Server.Name,
		ServiceVersion: version,
		Metrics:        cfg.Telemetry.Metrics,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	observer, err := providers.ToolObserver()
	if err != nil {
		return nil, fmt.Errorf("initializing tool observability: %w", err)
	}

	userAgent := strings.TrimSpace(cfg.Tools.UserAgent)
	if userAgent == "" {
		userAgent = "netprobe/" + version
	}
	deps := netdiag.Deps{
		Runner:    tool.NewExecRunner(cfg.Tools.Binaries),
		Pool:      tool.NewPool(cfg.Tools.Workers),
		Observer:  observer,
		Logger:    logger,
		UserAgent: userAgent,
	}
	if len(cfg.Tools.DNSServers) > 0 {
		deps.Resolver = netdiag.NewDNSResolver(cfg.Tools.DNSServers)
	}

	return &appRuntime{
		dispatcher: netdiag.NewDispatcher(deps),
		providers:  providers,
	}, nil
}

func (r *appRuntime) Close(ctx context.Context) error {
	if r == nil || r.providers == nil {
		return nil
	}
	return r.providers.Shutdown(ctx)
}
