package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNilAsset        = errors.New("asset: nil asset")
	ErrNilRaw          = errors.New("asset: nil raw value")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrAssetMismatch   = errors.New("asset: cannot operate on different assets")
	ErrNegativeResult  = errors.New("asset: operation would result in negative amount")
	ErrTooManyDecimals = errors.New("asset: too many decimal places for asset")
	ErrInvalidRaw      = errors.New("asset: invalid integer amount")
)

// Rounding selects the direction of integer rounding in conversions.
// Amounts charged to a payer round up; estimates of what a recipient gets round down.
type Rounding int

const (
	RoundDown Rounding = iota
	RoundUp
)

func (r Rounding) String() string {
	if r == RoundUp {
		return "up"
	}
	return "down"
}

// Amount is an exact, non-negative quantity of an asset in its smallest unit
// (wei, sun, lamports). The zero value is a zero amount of no asset.
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount copies raw into an Amount of a. It panics on a nil asset or a
// nil or negative value; use ParseRaw for untrusted input.
func NewAmount(a *Asset, raw *big.Int) Amount {
	switch {
	case a == nil:
		panic(ErrNilAsset)
	case raw == nil:
		panic(ErrNilRaw)
	case raw.Sign() < 0:
		panic(ErrNegativeAmount)
	}
	return Amount{raw: new(big.Int).Set(raw), asset: a}
}

// NewAmountFromInt64 is NewAmount for small literal values.
func NewAmountFromInt64(a *Asset, raw int64) Amount {
	return NewAmount(a, big.NewInt(raw))
}

// Zero is a zero Amount of a.
func Zero(a *Asset) Amount {
	return NewAmount(a, new(big.Int))
}

// ParseRaw parses a base-10 integer in the smallest unit, the form vendor
// APIs and route envelopes carry.
func ParseRaw(a *Asset, s string) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidRaw, s)
	}
	if v.Sign() < 0 {
		return Amount{}, ErrNegativeAmount
	}
	return Amount{raw: v, asset: a}, nil
}

// ParseString parses a human decimal ("100.5") in whole units of a. Inputs
// finer than the asset's decimals are rejected rather than rounded.
func ParseString(a *Asset, s string) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("asset: invalid decimal string: %w", err)
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	scaled := d.Shift(int32(a.Decimals()))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, ErrTooManyDecimals
	}
	return Amount{raw: scaled.BigInt(), asset: a}, nil
}

// Raw returns a copy of the smallest-unit value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

// RawString is the smallest-unit value in base 10.
func (a Amount) RawString() string {
	if a.raw == nil {
		return "0"
	}
	return a.raw.String()
}

func (a Amount) Asset() *Asset {
	return a.asset
}

func (a Amount) IsZero() bool {
	return a.raw == nil || a.raw.Sign() == 0
}

func (a Amount) IsPositive() bool {
	return a.raw != nil && a.raw.Sign() > 0
}

// Add returns a+b. Both must be of the same asset.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := sameAsset(a, b); err != nil {
		return Amount{}, err
	}
	return Amount{raw: new(big.Int).Add(a.Raw(), b.Raw()), asset: a.asset}, nil
}

// MustAdd is Add for amounts known to share an asset.
func (a Amount) MustAdd(b Amount) Amount {
	sum, err := a.Add(b)
	if err != nil {
		panic(err)
	}
	return sum
}

// Sub returns a-b, or ErrNegativeResult when b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := sameAsset(a, b); err != nil {
		return Amount{}, err
	}
	diff := new(big.Int).Sub(a.Raw(), b.Raw())
	if diff.Sign() < 0 {
		return Amount{}, ErrNegativeResult
	}
	return Amount{raw: diff, asset: a.asset}, nil
}

// MulDecimal scales a by a non-negative factor, rounding the result to an
// integer in direction r. The product is computed exactly before rounding.
func (a Amount) MulDecimal(factor decimal.Decimal, r Rounding) Amount {
	if factor.IsNegative() {
		panic(ErrNegativeAmount)
	}
	num := new(big.Int).Mul(a.Raw(), factor.Coefficient())
	if exp := factor.Exponent(); exp < 0 {
		num = divRound(num, pow10(int64(-exp)), r)
	} else {
		num.Mul(num, pow10(int64(exp)))
	}
	return Amount{raw: num, asset: a.asset}
}

// Cmp compares two amounts of the same asset: -1, 0 or +1.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := sameAsset(a, b); err != nil {
		return 0, err
	}
	return a.Raw().Cmp(b.Raw()), nil
}

// Covers reports whether a is at least b.
func (a Amount) Covers(b Amount) (bool, error) {
	c, err := a.Cmp(b)
	if err != nil {
		return false, err
	}
	return c >= 0, nil
}

// LessThan reports whether a is below b.
func (a Amount) LessThan(b Amount) (bool, error) {
	c, err := a.Cmp(b)
	if err != nil {
		return false, err
	}
	return c < 0, nil
}

// Equals reports the same asset and the same value.
func (a Amount) Equals(b Amount) bool {
	if a.asset == nil || b.asset == nil {
		return a.asset == b.asset && a.Raw().Cmp(b.Raw()) == 0
	}
	return a.asset.ID().Equals(b.asset.ID()) && a.Raw().Cmp(b.Raw()) == 0
}

// ToDecimal is the value in whole units, for display and API output only.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.raw == nil || a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, -int32(a.asset.Decimals()))
}

// Formatted is the whole-unit decimal without the symbol.
func (a Amount) Formatted() string {
	return a.ToDecimal().String()
}

func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return a.Formatted() + " " + a.asset.Symbol()
}

func sameAsset(a, b Amount) error {
	if a.asset == nil || b.asset == nil {
		return ErrNilAsset
	}
	if !a.asset.ID().Equals(b.asset.ID()) {
		return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, a.asset.Symbol(), b.asset.Symbol())
	}
	return nil
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// divRound divides non-negative num by positive den with the requested rounding.
func divRound(num, den *big.Int, r Rounding) *big.Int {
	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	if r == RoundUp && m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
