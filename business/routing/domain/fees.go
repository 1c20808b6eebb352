package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/paybridge/internal/asset"
)

// FeeBreakdown is the provider-reported cost of a route, in source units.
type FeeBreakdown struct {
	// Protocol is the bridge or aggregator fee.
	Protocol asset.Amount
	// Gas is the source-chain gas the provider charges in the source asset.
	Gas asset.Amount
}

// Total returns Protocol + Gas, treating unset parts as zero.
func (f FeeBreakdown) Total(src *asset.Asset) asset.Amount {
	total := asset.Zero(src)
	for _, part := range []asset.Amount{f.Protocol, f.Gas} {
		if part.Asset() == nil || !part.Asset().Equals(src) {
			continue
		}
		total = total.MustAdd(part)
	}
	return total
}

// PlatformFee is a percentage markup charged on the requested amount.
type PlatformFee struct {
	rate decimal.Decimal
}

// NewPlatformFee creates a fee from a fraction (0.005 = 0.5%).
func NewPlatformFee(rate decimal.Decimal) PlatformFee {
	return PlatformFee{rate: rate}
}

// Rate returns the fraction.
func (p PlatformFee) Rate() decimal.Decimal { return p.rate }

// Of returns the fee on amount, rounded up so the platform is never short.
func (p PlatformFee) Of(amount asset.Amount) asset.Amount {
	return amount.MulDecimal(p.rate, asset.RoundUp)
}
