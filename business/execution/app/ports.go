// Package app contains the execution service and its port definitions.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	chain "github.com/fd1az/paybridge/business/chain/domain"
	routingApp "github.com/fd1az/paybridge/business/routing/app"
	routing "github.com/fd1az/paybridge/business/routing/domain"
	settlement "github.com/fd1az/paybridge/business/settlement/domain"
)

// Authenticator verifies the caller's bearer token and returns its subject.
type Authenticator interface {
	Verify(token string) (string, error)
}

// EnvelopeDecoder opens a route envelope issued by the quote service.
type EnvelopeDecoder interface {
	Decode(envelope string) (routing.Quote, error)
}

// ProviderResolver looks up the provider named in an envelope.
type ProviderResolver interface {
	Get(name string) (routingApp.Provider, error)
}

// Chain reads payer state and broadcasts sponsored transactions.
type Chain interface {
	Supports(chainID uint64) bool
	BalanceOf(ctx context.Context, chainID uint64, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, chainID uint64, token, owner, spender common.Address) (*big.Int, error)
	Spender(chainID uint64) (common.Address, bool)
	Relay(ctx context.Context, req chain.RelayRequest) (common.Hash, error)
}

// Ledger opens settlement tracking for a submitted transfer.
type Ledger interface {
	Open(ctx context.Context, e settlement.Event) error
}

// ReplayGuard claims an envelope so it is executed at most once.
type ReplayGuard interface {
	Add(ctx context.Context, key string, value string, ttl time.Duration) bool
	Delete(ctx context.Context, key string)
}
