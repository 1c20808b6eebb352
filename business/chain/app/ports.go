// Package app contains application services and port definitions for the chain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/paybridge/business/chain/domain"
)

// TokenReader reads ERC20 and native balances.
type TokenReader interface {
	// BalanceOf returns owner's balance. The zero token address reads the native balance.
	BalanceOf(ctx context.Context, chainID uint64, token, owner common.Address) (*big.Int, error)

	// Allowance returns what spender may pull from owner.
	Allowance(ctx context.Context, chainID uint64, token, owner, spender common.Address) (*big.Int, error)
}

// ReceiptReader fetches mined receipts.
type ReceiptReader interface {
	// Receipt returns domain.ErrReceiptNotFound while the transaction is pending or unknown.
	Receipt(ctx context.Context, chainID uint64, hash common.Hash) (*domain.Receipt, error)
}

// Relayer broadcasts sponsored transactions.
type Relayer interface {
	// Relay signs and broadcasts one transaction and returns its hash without waiting.
	Relay(ctx context.Context, req domain.RelayRequest) (common.Hash, error)

	// Spender returns the executor address payers must approve on chainID.
	Spender(chainID uint64) (common.Address, bool)
}

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GetGasPrice retrieves the current gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// EstimateGas estimates the gas needed for a call from `from`.
	EstimateGas(ctx context.Context, from common.Address, call domain.Call) (uint64, error)
}
