package app

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	chain "github.com/fd1az/paybridge/business/chain/domain"
	routing "github.com/fd1az/paybridge/business/routing/domain"
	"github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
)

var (
	_ Probe = (*SourceProbe)(nil)
	_ Probe = (*DestinationProbe)(nil)
)

// SourceProbe confirms the payer's transaction on the source chain. Deposit
// routes on chains without RPC access are confirmed through the provider.
type SourceProbe struct {
	receipts  ReceiptReader
	providers ProviderResolver
}

// NewSourceProbe creates a SourceProbe.
func NewSourceProbe(receipts ReceiptReader, providers ProviderResolver) *SourceProbe {
	return &SourceProbe{receipts: receipts, providers: providers}
}

// Stage implements Probe.
func (p *SourceProbe) Stage() domain.Stage { return domain.StageSource }

// Check implements Probe.
func (p *SourceProbe) Check(ctx context.Context, e domain.Event) (domain.Outcome, error) {
	if hash, ok := chainHash(e.TxHash); ok && p.receipts.Supports(e.FromChain) {
		return receiptOutcome(ctx, p.receipts, e.FromChain, hash)
	}
	if !e.IsDeposit() {
		return domain.Retry, apperror.New(apperror.CodeUnsupportedChain,
			apperror.WithContext("no receipt access for source chain"))
	}

	st, err := providerStatus(ctx, p.providers, e)
	if err != nil {
		return domain.Retry, err
	}
	switch {
	case st.State == routing.StatusDone, st.SourceConfirmed:
		return domain.Terminal(domain.StatusSuccessful), nil
	case st.State == routing.StatusFailed:
		return domain.Terminal(domain.StatusFailed), nil
	default:
		return domain.Retry, nil
	}
}

// DestinationProbe confirms delivery to the merchant. Cross-chain and deposit
// routes ask the provider; same-chain calls are final once the source receipt is.
type DestinationProbe struct {
	receipts  ReceiptReader
	providers ProviderResolver
}

// NewDestinationProbe creates a DestinationProbe.
func NewDestinationProbe(receipts ReceiptReader, providers ProviderResolver) *DestinationProbe {
	return &DestinationProbe{receipts: receipts, providers: providers}
}

// Stage implements Probe.
func (p *DestinationProbe) Stage() domain.Stage { return domain.StageDestination }

// Check implements Probe.
func (p *DestinationProbe) Check(ctx context.Context, e domain.Event) (domain.Outcome, error) {
	if !e.CrossChain() && !e.IsDeposit() {
		hash, ok := chainHash(e.TxHash)
		if !ok || !p.receipts.Supports(e.FromChain) {
			return domain.Retry, apperror.New(apperror.CodeUnsupportedChain,
				apperror.WithContext("no receipt access for same-chain route"))
		}
		return receiptOutcome(ctx, p.receipts, e.FromChain, hash)
	}

	st, err := providerStatus(ctx, p.providers, e)
	if err != nil {
		return domain.Retry, err
	}
	switch st.State {
	case routing.StatusDone:
		return domain.Terminal(domain.StatusSuccessful).WithDestinationTx(st.DestinationTxHash), nil
	case routing.StatusFailed:
		return domain.Terminal(domain.StatusFailed), nil
	default:
		return domain.Retry, nil
	}
}

func receiptOutcome(ctx context.Context, receipts ReceiptReader, chainID uint64, hash common.Hash) (domain.Outcome, error) {
	rcpt, err := receipts.Receipt(ctx, chainID, hash)
	if errors.Is(err, chain.ErrReceiptNotFound) {
		return domain.Retry, nil
	}
	if err != nil {
		return domain.Retry, err
	}
	if rcpt.Succeeded {
		return domain.Terminal(domain.StatusSuccessful), nil
	}
	return domain.Terminal(domain.StatusFailed), nil
}

func providerStatus(ctx context.Context, providers ProviderResolver, e domain.Event) (routing.ProviderStatus, error) {
	p, err := providers.Get(e.Provider)
	if err != nil {
		return routing.ProviderStatus{}, err
	}
	req := routing.StatusRequest{
		RequestID:      e.RequestID,
		FromChain:      e.FromChain,
		ToChain:        e.ToChain,
		DepositAddress: e.DepositAddress,
	}
	// deposit routes registered before the transfer are keyed by their address
	if e.TxHash != e.DepositAddress {
		req.TxHash = e.TxHash
	}
	return p.Status(ctx, req)
}

// chainHash parses a 32-byte EVM transaction hash.
func chainHash(s string) (common.Hash, bool) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, false
	}
	return common.BytesToHash(b), true
}
