package domain

import (
	"math/big"
	"time"

	"github.com/fd1az/paybridge/internal/asset"
)

// PayloadKind distinguishes relayed contract calls from deposit addresses.
type PayloadKind string

const (
	PayloadContractCall   PayloadKind = "contract_call"
	PayloadDepositAddress PayloadKind = "deposit_address"
)

// ExecutionPayload is what the payer's funds are sent to.
type ExecutionPayload struct {
	Kind PayloadKind
	// Contract call
	Target   string
	CallData []byte
	Value    *big.Int
	// ApprovalAddress is the provider contract that pulls tokens from the executor.
	ApprovalAddress string
	// Deposit address
	DepositAddress string
	DepositMemo    string
}

// IsDeposit reports whether the route is paid by a plain transfer.
func (p ExecutionPayload) IsDeposit() bool {
	return p.Kind == PayloadDepositAddress
}

// ProviderQuote is a provider's normalized answer for one candidate amount.
type ProviderQuote struct {
	FromAmount    asset.Amount
	DestAmount    asset.Amount
	DestAmountMin asset.Amount
	Fees          FeeBreakdown
	Payload       ExecutionPayload
	RequestID     string
}

// Quote is the solver's fee-inclusive result.
type Quote struct {
	RequestID string
	Provider  string
	Route     Route

	// FromAmount is what the payer is charged, fees included.
	FromAmount asset.Amount
	// ToAmount is the requested destination amount.
	ToAmount         asset.Amount
	ToAmountEstimate asset.Amount
	ToAmountMin      asset.Amount
	PlatformFee      asset.Amount
	ProviderFee      asset.Amount

	Payload ExecutionPayload

	MerchantAddress string
	MerchantWebhook string

	IssuedAt time.Time
	Expiry   time.Time
}

// Expired reports whether now is past the quote's expiry.
func (q Quote) Expired(now time.Time) bool {
	return now.After(q.Expiry)
}
