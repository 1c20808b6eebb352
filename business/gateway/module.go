// Package gateway implements the public HTTP API over quoting, execution and
// transaction lookup.
package gateway

import (
	"context"

	executionDI "github.com/fd1az/paybridge/business/execution/di"
	gatewayDI "github.com/fd1az/paybridge/business/gateway/di"
	"github.com/fd1az/paybridge/business/gateway/infra/rest"
	routingDI "github.com/fd1az/paybridge/business/routing/di"
	settlementDI "github.com/fd1az/paybridge/business/settlement/di"
	"github.com/fd1az/paybridge/internal/config"
	"github.com/fd1az/paybridge/internal/di"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/monolith"
)

// Module implements the gateway bounded context.
type Module struct{}

// RegisterServices registers the API server with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, gatewayDI.Server, func(sr di.ServiceRegistry) *rest.Server {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return rest.NewServer(
			rest.Options{
				Port:            cfg.HTTP.Port,
				ReadTimeout:     cfg.HTTP.ReadTimeout,
				WriteTimeout:    cfg.HTTP.WriteTimeout,
				ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
				CORSOrigins:     cfg.HTTP.CORSOrigins,
				RateLimit:       cfg.HTTP.RateLimit,
				RateLimitBurst:  cfg.HTTP.RateLimitBurst,
			},
			routingDI.GetQuoteService(sr),
			executionDI.GetService(sr),
			settlementDI.GetLedger(sr),
			log,
		)
	})
	return nil
}

// Startup serves the API in api and all modes.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mode := mono.Config().App.Mode
	if mode != config.ModeAll && mode != config.ModeAPI {
		mono.Logger().Info(ctx, "gateway module started", "serving", false)
		return nil
	}

	srv := gatewayDI.GetServer(mono.Services())
	mono.Go("api-server", srv.Run)
	mono.Logger().Info(ctx, "gateway module started", "serving", true, "port", mono.Config().HTTP.Port)
	return nil
}
