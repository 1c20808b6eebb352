// Package di contains dependency injection tokens for the routing context.
package di

import (
	"github.com/fd1az/paybridge/business/routing/app"
	"github.com/fd1az/paybridge/business/routing/infra/envelope"
	"github.com/fd1az/paybridge/internal/di"
)

// Public service tokens - exposed to other modules
var (
	QuoteService = di.NewToken[*app.QuoteService]("routing.QuoteService")
	Providers    = di.NewToken[*app.Registry]("routing.Providers")
	Codec        = di.NewToken[*envelope.Codec]("routing.Codec")
)

// Private dependency tokens - internal to routing module
var (
	Solver = di.NewToken[*app.Solver]("routing:solver")
)

// Helper functions for type-safe access
func GetQuoteService(c di.ServiceRegistry) *app.QuoteService {
	return di.GetToken(c, QuoteService)
}

func GetProviders(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, Providers)
}

func GetCodec(c di.ServiceRegistry) *envelope.Codec {
	return di.GetToken(c, Codec)
}

func GetSolver(c di.ServiceRegistry) *app.Solver {
	return di.GetToken(c, Solver)
}
