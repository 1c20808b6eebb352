// Package static serves configured fixed USD prices, typically stablecoin pegs.
package static

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/paybridge/business/pricing/app"
	"github.com/fd1az/paybridge/business/pricing/domain"
)

var _ app.PriceFeed = (*Feed)(nil)

// Feed returns fixed prices stamped with the current time.
type Feed struct {
	prices map[string]decimal.Decimal
	now    func() time.Time
}

// New creates a feed over prices keyed by symbol.
func New(prices map[string]decimal.Decimal) *Feed {
	norm := make(map[string]decimal.Decimal, len(prices))
	for sym, p := range prices {
		norm[strings.ToUpper(sym)] = p
	}
	return &Feed{prices: norm, now: time.Now}
}

// Name identifies the feed.
func (f *Feed) Name() string { return "static" }

// USDPrice returns the fixed price for symbol.
func (f *Feed) USDPrice(_ context.Context, symbol string) (domain.USDPrice, error) {
	p, ok := f.prices[strings.ToUpper(symbol)]
	if !ok {
		return domain.USDPrice{}, app.ErrUnknownSymbol
	}
	return domain.NewUSDPrice(symbol, p, domain.SourceStatic, f.now()), nil
}
