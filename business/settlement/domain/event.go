// Package domain contains the core domain types for the settlement context.
package domain

import (
	"errors"
	"time"

	routing "github.com/fd1az/paybridge/business/routing/domain"
	"github.com/fd1az/paybridge/internal/asset"
)

// Stage is the leg of a transfer a tracker confirms.
type Stage string

const (
	StageSource      Stage = "source"
	StageDestination Stage = "destination"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return s == StageSource || s == StageDestination
}

// Event is the queued unit of settlement work. Amounts are denormalized so
// trackers can notify merchants without reading the record back.
type Event struct {
	ID        string `json:"eventId"`
	TxHash    string `json:"transactionHash"`
	RequestID string `json:"requestId"`
	Provider  string `json:"provider"`

	FromChain        uint64 `json:"fromChainId"`
	ToChain          uint64 `json:"toChainId"`
	FromAsset        string `json:"fromAsset"`
	FromAssetAddress string `json:"fromAssetAddress,omitempty"`
	ToAsset          string `json:"toAsset"`
	ToAssetAddress   string `json:"toAssetAddress,omitempty"`
	FromAddress      string `json:"fromAddress"`
	ToAddress        string `json:"toAddress"`

	FromAmount    string `json:"fromAmount"`
	FromAmountRaw string `json:"fromAmountRaw"`
	ToAmount      string `json:"toAmount"`
	ToAmountRaw   string `json:"toAmountRaw"`
	PlatformFee   string `json:"platformFee"`
	ProviderFee   string `json:"providerFee"`

	DepositAddress  string `json:"depositAddress,omitempty"`
	MerchantAddress string `json:"merchantAddress"`
	MerchantWebhook string `json:"merchantWebhook,omitempty"`

	SubmittedAt time.Time `json:"submittedAt"`
}

// ErrInvalidEvent is returned by Validate.
var ErrInvalidEvent = errors.New("settlement: invalid event")

// NewEvent builds the event for a submitted quote.
func NewEvent(id, txHash string, q routing.Quote, at time.Time) Event {
	return Event{
		ID:               id,
		TxHash:           txHash,
		RequestID:        q.RequestID,
		Provider:         q.Provider,
		FromChain:        q.Route.FromChain(),
		ToChain:          q.Route.ToChain(),
		FromAsset:        q.Route.From.Symbol(),
		FromAssetAddress: q.Route.From.Address(),
		ToAsset:          q.Route.To.Symbol(),
		ToAssetAddress:   q.Route.To.Address(),
		FromAddress:      q.Route.FromAddress,
		ToAddress:        q.Route.ToAddress,
		FromAmount:       q.FromAmount.Formatted(),
		FromAmountRaw:    q.FromAmount.RawString(),
		ToAmount:         q.ToAmount.Formatted(),
		ToAmountRaw:      q.ToAmount.RawString(),
		PlatformFee:      q.PlatformFee.Formatted(),
		ProviderFee:      q.ProviderFee.Formatted(),
		DepositAddress:   q.Payload.DepositAddress,
		MerchantAddress:  q.MerchantAddress,
		MerchantWebhook:  q.MerchantWebhook,
		SubmittedAt:      at.UTC(),
	}
}

// Validate checks the fields every stage relies on.
func (e Event) Validate() error {
	if e.TxHash == "" || e.Provider == "" {
		return ErrInvalidEvent
	}
	if e.FromChain == asset.ChainIDFiat || e.ToChain == asset.ChainIDFiat {
		return ErrInvalidEvent
	}
	return nil
}

// CrossChain reports whether the transfer leaves the source chain.
func (e Event) CrossChain() bool {
	return e.FromChain != e.ToChain
}

// IsDeposit reports whether the payer funds the route by a plain transfer.
func (e Event) IsDeposit() bool {
	return e.DepositAddress != ""
}

// MessageID is the queue deduplication id for the event on stage.
func (e Event) MessageID(stage Stage) string {
	return e.ID + "." + string(stage)
}
