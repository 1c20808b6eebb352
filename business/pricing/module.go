// Package pricing implements the price oracle bounded context.
package pricing

import (
	"context"
	"time"

	"github.com/fd1az/paybridge/business/pricing/app"
	pricingDI "github.com/fd1az/paybridge/business/pricing/di"
	"github.com/fd1az/paybridge/business/pricing/infra/binance"
	"github.com/fd1az/paybridge/business/pricing/infra/static"
	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/config"
	"github.com/fd1az/paybridge/internal/di"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Binance feed - private dependency, nil when disabled
	di.RegisterToken(c, pricingDI.BinanceProvider, func(sr di.ServiceRegistry) *binance.Provider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		if !cfg.Pricing.Binance.Enabled {
			return nil
		}

		provider, err := binance.NewProvider(binance.ProviderConfig{
			HTTPURL:      cfg.Pricing.Binance.BaseURL,
			WebSocketURL: cfg.Pricing.Binance.WebSocketURL,
			QuoteSymbol:  cfg.Pricing.Binance.QuoteSymbol,
			Symbols:      registry.PriceSymbols(),
			Stream:       cfg.Pricing.Binance.Stream,
			StaleTimeout: cfg.Pricing.MaxAge,
			Timeout:      cfg.Pricing.Binance.Timeout,
		}, log)
		if err != nil {
			panic("failed to create binance provider: " + err.Error())
		}
		return provider
	})

	// Feeds in priority order: configured pegs first, then the exchange
	di.RegisterToken(c, pricingDI.Feeds, func(sr di.ServiceRegistry) []app.PriceFeed {
		cfg := sr.Get("config").(*config.Config)

		prices, err := cfg.Pricing.StaticPrices()
		if err != nil {
			panic("invalid static prices: " + err.Error())
		}
		feeds := []app.PriceFeed{static.New(prices)}
		if p := pricingDI.GetBinanceProvider(sr); p != nil {
			feeds = append(feeds, p)
		}
		return feeds
	})

	// Register Oracle (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.Oracle, func(sr di.ServiceRegistry) *app.Oracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewOracle(app.OracleConfig{
			CacheTTL: cfg.Pricing.CacheTTL,
			MaxAge:   cfg.Pricing.MaxAge,
		}, log, pricingDI.GetFeeds(sr)...)
	})

	return nil
}

// Startup initializes the pricing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	p := pricingDI.GetBinanceProvider(mono.Services())
	if p != nil {
		// Connect the stream without blocking startup; REST covers the gap
		mono.Go("binance-connect", func(ctx context.Context) error {
			for {
				connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				err := p.Connect(connectCtx)
				cancel()
				if err == nil {
					log.Info(ctx, "binance stream connected")
					return nil
				}
				log.Warn(ctx, "binance stream connection failed, will retry", "error", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(5 * time.Second):
				}
			}
		})
		mono.OnShutdown(func(context.Context) error { return p.Close() })
	}

	oracle := pricingDI.GetOracle(mono.Services())
	mono.OnShutdown(func(context.Context) error {
		oracle.Close()
		return nil
	})

	log.Info(ctx, "pricing module started", "feeds", len(pricingDI.GetFeeds(mono.Services())))
	return nil
}
