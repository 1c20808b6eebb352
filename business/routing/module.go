// Package routing implements the quote bounded context: provider adapters,
// the fee-inclusive solver and the route envelope.
package routing

import (
	"context"
	"strings"

	pricingDI "github.com/fd1az/paybridge/business/pricing/di"
	"github.com/fd1az/paybridge/business/routing/app"
	routingDI "github.com/fd1az/paybridge/business/routing/di"
	"github.com/fd1az/paybridge/business/routing/infra/debridge"
	"github.com/fd1az/paybridge/business/routing/infra/envelope"
	"github.com/fd1az/paybridge/business/routing/infra/intents"
	"github.com/fd1az/paybridge/business/routing/infra/lifi"
	"github.com/fd1az/paybridge/business/routing/infra/squid"
	"github.com/fd1az/paybridge/business/routing/infra/vendor"
	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/config"
	"github.com/fd1az/paybridge/internal/di"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/monolith"
)

// Module implements the routing bounded context.
type Module struct{}

// RegisterServices registers all routing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register providers (public - execution and settlement resolve envelopes through it)
	di.RegisterToken(c, routingDI.Providers, func(sr di.ServiceRegistry) *app.Registry {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		executors := make(map[uint64]string, len(cfg.Chains))
		for _, ch := range cfg.Chains {
			if ch.Executor != "" {
				executors[ch.ChainID] = ch.Executor
			}
		}

		type factory func(vendor.Config, logger.LoggerInterface) (app.Provider, error)
		vendors := []struct {
			name string
			cfg  config.ProviderConfig
			new  factory
		}{
			{lifi.Name, cfg.Providers.LiFi, func(c vendor.Config, l logger.LoggerInterface) (app.Provider, error) { return lifi.New(c, l) }},
			{squid.Name, cfg.Providers.Squid, func(c vendor.Config, l logger.LoggerInterface) (app.Provider, error) { return squid.New(c, l) }},
			{debridge.Name, cfg.Providers.DeBridge, func(c vendor.Config, l logger.LoggerInterface) (app.Provider, error) { return debridge.New(c, l) }},
			{intents.Name, cfg.Providers.Intents, func(c vendor.Config, l logger.LoggerInterface) (app.Provider, error) { return intents.New(c, l) }},
		}

		var providers []app.Provider
		for _, v := range vendors {
			if !v.cfg.Enabled {
				continue
			}
			p, err := v.new(vendorConfig(v.cfg, executors), log)
			if err != nil {
				panic("failed to create " + v.name + " provider: " + err.Error())
			}
			providers = append(providers, p)
		}

		registry := app.NewRegistry(cfg.Providers.Default, providers...)
		if _, err := registry.Get(""); err != nil {
			panic("default provider " + cfg.Providers.Default + " is not enabled")
		}
		return registry
	})

	// Register envelope codec (public - execution decodes with it)
	di.RegisterToken(c, routingDI.Codec, func(sr di.ServiceRegistry) *envelope.Codec {
		cfg := sr.Get("config").(*config.Config)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		codec, err := envelope.New(cfg.Envelope.Secret, cfg.Envelope.Issuer, registry)
		if err != nil {
			panic("failed to create envelope codec: " + err.Error())
		}
		return codec
	})

	// Register solver - private dependency
	di.RegisterToken(c, routingDI.Solver, func(sr di.ServiceRegistry) *app.Solver {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		solver, err := app.NewSolver(app.SolverConfig{
			MaxIterations:   cfg.Solver.MaxIterations,
			BufferFactor:    cfg.Solver.BufferFactorDecimal(),
			PlatformFeeRate: cfg.Solver.PlatformFeeRate(),
			QuoteTTL:        cfg.Solver.QuoteTTL,
			Timeout:         cfg.Solver.Timeout,
		}, pricingDI.GetOracle(sr), log)
		if err != nil {
			panic("failed to create solver: " + err.Error())
		}
		return solver
	})

	// Register QuoteService (public - exposed to the gateway)
	di.RegisterToken(c, routingDI.QuoteService, func(sr di.ServiceRegistry) *app.QuoteService {
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		return app.NewQuoteService(
			registry,
			routingDI.GetProviders(sr),
			routingDI.GetSolver(sr),
			routingDI.GetCodec(sr),
			log,
		)
	})

	return nil
}

func vendorConfig(pc config.ProviderConfig, executors map[uint64]string) vendor.Config {
	return vendor.Config{
		BaseURL:           pc.BaseURL,
		StatusURL:         pc.StatusURL,
		APIKey:            pc.APIKey,
		Integrator:        pc.Integrator,
		SlippageBps:       pc.SlippageBps,
		Timeout:           pc.Timeout,
		RequestsPerMinute: pc.RateLimit,
		Executors:         executors,
	}
}

// Startup initializes the routing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	providers := routingDI.GetProviders(mono.Services())
	_ = routingDI.GetQuoteService(mono.Services())

	mono.Logger().Info(ctx, "routing module started",
		"providers", strings.Join(providers.Names(), ","),
		"default", mono.Config().Providers.Default)
	return nil
}
