package asset

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// rateScale is the number of fractional digits kept in a Price.
const rateScale = 18

var rateOne = pow10(rateScale)

var ErrZeroPrice = errors.New("asset: zero price")

// Price converts base into quote: one whole base unit buys Rate() whole
// quote units. The rate is a fixed-point integer with 18 fractional digits.
type Price struct {
	base, quote *Asset
	scaled      *big.Int
	at          time.Time
}

// NewPrice fixes rate at 18 digits, truncating anything finer.
func NewPrice(base, quote *Asset, rate decimal.Decimal, at time.Time) Price {
	switch {
	case base == nil, quote == nil:
		panic(ErrNilAsset)
	case rate.IsNegative():
		panic(ErrNegativeAmount)
	}
	return Price{base: base, quote: quote, scaled: rate.Shift(rateScale).BigInt(), at: at}
}

// NewPriceFromRatio derives base/quote from the prices of both assets in a
// shared unit (USD per base, USD per quote), rounding the last digit in
// direction r.
func NewPriceFromRatio(base, quote *Asset, baseUnit, quoteUnit decimal.Decimal, r Rounding, at time.Time) (Price, error) {
	if base == nil || quote == nil {
		return Price{}, ErrNilAsset
	}
	if !baseUnit.IsPositive() || !quoteUnit.IsPositive() {
		return Price{}, ErrZeroPrice
	}

	num := new(big.Int).Mul(baseUnit.Coefficient(), rateOne)
	den := new(big.Int).Set(quoteUnit.Coefficient())
	scale(num, den, int64(baseUnit.Exponent())-int64(quoteUnit.Exponent()))

	return Price{base: base, quote: quote, scaled: divRound(num, den, r), at: at}, nil
}

// scale multiplies num by 10^exp when exp is positive and den otherwise.
func scale(num, den *big.Int, exp int64) {
	switch {
	case exp > 0:
		num.Mul(num, pow10(exp))
	case exp < 0:
		den.Mul(den, pow10(-exp))
	}
}

func (p Price) Rate() decimal.Decimal {
	if p.scaled == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(p.scaled, -rateScale)
}

func (p Price) Base() *Asset  { return p.base }
func (p Price) Quote() *Asset { return p.quote }

// ObservedAt is when the underlying quotes were taken.
func (p Price) ObservedAt() time.Time { return p.at }

func (p Price) IsZero() bool {
	return p.scaled == nil || p.scaled.Sign() == 0
}

// Convert prices amount (of base) in quote. All scaling happens before the
// single final division, so r decides the only rounding step:
//
//	out = in * scaled * 10^(quoteDec-baseDec) / 10^18
func (p Price) Convert(amount Amount, r Rounding) (Amount, error) {
	in := amount.Asset()
	if in == nil {
		return Amount{}, ErrNilAsset
	}
	if !in.ID().Equals(p.base.ID()) {
		return Amount{}, fmt.Errorf("%w: price is for %s, amount is %s", ErrAssetMismatch, p.base, in)
	}
	if p.IsZero() {
		return Amount{}, ErrZeroPrice
	}

	num := new(big.Int).Mul(amount.Raw(), p.scaled)
	den := new(big.Int).Set(rateOne)
	scale(num, den, int64(p.quote.Decimals())-int64(p.base.Decimals()))
	return NewAmount(p.quote, divRound(num, den, r)), nil
}

func (p Price) String() string {
	if p.base == nil || p.quote == nil {
		return p.Rate().String()
	}
	return p.Rate().String() + " " + p.quote.Symbol() + "/" + p.base.Symbol()
}
