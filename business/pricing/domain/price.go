// Package domain contains the core domain types for the pricing context.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies where a price came from.
type Source string

const (
	SourceStatic        Source = "static"
	SourceBinanceStream Source = "binance_stream"
	SourceBinanceREST   Source = "binance_rest"
)

// USDPrice is the dollar value of one whole unit of a price symbol.
type USDPrice struct {
	Symbol     string
	USD        decimal.Decimal
	Source     Source
	ObservedAt time.Time
}

// NewUSDPrice normalizes the symbol to upper case.
func NewUSDPrice(symbol string, usd decimal.Decimal, source Source, at time.Time) USDPrice {
	return USDPrice{
		Symbol:     strings.ToUpper(symbol),
		USD:        usd,
		Source:     source,
		ObservedAt: at,
	}
}

// IsStale reports whether the observation is older than maxAge.
func (p USDPrice) IsStale(now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && now.Sub(p.ObservedAt) > maxAge
}
