// Package app contains application services and port definitions for the routing context.
package app

import (
	"context"

	"github.com/fd1az/paybridge/business/routing/domain"
	"github.com/fd1az/paybridge/internal/asset"
)

// Provider is one bridge or swap routing vendor.
type Provider interface {
	// Name is the registry key carried in envelopes.
	Name() string

	// Quote prices route for amount of the source asset. It issues one request
	// and has no side effects. Errors carry CodeProviderUnavailable,
	// CodeInvalidRoute or CodeInsufficientLiquidity.
	Quote(ctx context.Context, route domain.Route, amount asset.Amount) (domain.ProviderQuote, error)

	// Status reports the cross-chain state of a submitted transfer.
	Status(ctx context.Context, req domain.StatusRequest) (domain.ProviderStatus, error)
}

// PriceOracle converts amounts between assets at spot.
type PriceOracle interface {
	Convert(ctx context.Context, amount asset.Amount, to *asset.Asset, r asset.Rounding) (asset.Amount, error)
}

// EnvelopeCodec turns quotes into opaque tamper-evident strings and back.
type EnvelopeCodec interface {
	Encode(q domain.Quote) (string, error)
	// Decode fails with CodeEnvelopeMalformed on any tampering or garbage.
	Decode(envelope string) (domain.Quote, error)
}
