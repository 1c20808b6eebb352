// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/fd1az/paybridge/business/pricing/domain"
)

// PriceFeed returns the USD value of a price symbol (ETH, BTC, USDC...).
type PriceFeed interface {
	Name() string
	USDPrice(ctx context.Context, symbol string) (domain.USDPrice, error)
}
