// Package domain contains the core domain types for the chain context.
package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// GasPrice is a legacy gas price observed at a point in time.
type GasPrice struct {
	Wei      *big.Int
	Gwei     float64
	Observed time.Time
}

// NewGasPrice stamps wei with the current time.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{Wei: wei, Gwei: WeiToGwei(wei), Observed: time.Now()}
}

// WeiToGwei is lossy and meant for metrics and logs.
func WeiToGwei(wei *big.Int) float64 {
	f, _ := decimal.NewFromBigInt(wei, -9).Float64()
	return f
}

// GweiToWei converts a configured gwei ceiling to wei, truncating sub-wei digits.
func GweiToWei(gwei float64) *big.Int {
	return decimal.NewFromFloat(gwei).Shift(9).BigInt()
}
