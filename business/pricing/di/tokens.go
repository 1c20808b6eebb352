// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/paybridge/business/pricing/app"
	"github.com/fd1az/paybridge/business/pricing/infra/binance"
	"github.com/fd1az/paybridge/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Oracle = di.NewToken[*app.Oracle]("pricing.Oracle")
)

// Private dependency tokens - internal to pricing module
var (
	Feeds           = di.NewToken[[]app.PriceFeed]("pricing:feeds")
	BinanceProvider = di.NewToken[*binance.Provider]("pricing:binanceProvider")
)

// Helper functions for type-safe access
func GetOracle(c di.ServiceRegistry) *app.Oracle {
	return di.GetToken(c, Oracle)
}

func GetFeeds(c di.ServiceRegistry) []app.PriceFeed {
	return di.GetToken(c, Feeds)
}

func GetBinanceProvider(c di.ServiceRegistry) *binance.Provider {
	return di.GetToken(c, BinanceProvider)
}
