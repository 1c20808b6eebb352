package app

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/paybridge/business/chain/domain"
)

// ChainService coordinates chain reads and relaying for the programmable chains
// the service is configured for.
type ChainService struct {
	tokens   TokenReader
	receipts ReceiptReader
	relayer  Relayer
	chains   map[uint64]struct{}
}

// NewChainService creates a ChainService over the configured chain ids.
func NewChainService(tokens TokenReader, receipts ReceiptReader, relayer Relayer, chainIDs []uint64) *ChainService {
	chains := make(map[uint64]struct{}, len(chainIDs))
	for _, id := range chainIDs {
		chains[id] = struct{}{}
	}
	return &ChainService{
		tokens:   tokens,
		receipts: receipts,
		relayer:  relayer,
		chains:   chains,
	}
}

// Supports reports whether chainID has an RPC endpoint configured.
func (s *ChainService) Supports(chainID uint64) bool {
	_, ok := s.chains[chainID]
	return ok
}

// ChainIDs returns the configured chains in ascending order.
func (s *ChainService) ChainIDs() []uint64 {
	out := make([]uint64, 0, len(s.chains))
	for id := range s.chains {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BalanceOf returns owner's balance of token.
func (s *ChainService) BalanceOf(ctx context.Context, chainID uint64, token, owner common.Address) (*big.Int, error) {
	return s.tokens.BalanceOf(ctx, chainID, token, owner)
}

// Allowance returns the amount spender may pull from owner.
func (s *ChainService) Allowance(ctx context.Context, chainID uint64, token, owner, spender common.Address) (*big.Int, error) {
	return s.tokens.Allowance(ctx, chainID, token, owner, spender)
}

// Receipt returns the mined receipt for hash.
func (s *ChainService) Receipt(ctx context.Context, chainID uint64, hash common.Hash) (*domain.Receipt, error) {
	return s.receipts.Receipt(ctx, chainID, hash)
}

// Relay broadcasts a sponsored transaction.
func (s *ChainService) Relay(ctx context.Context, req domain.RelayRequest) (common.Hash, error) {
	return s.relayer.Relay(ctx, req)
}

// Spender returns the executor address for chainID.
func (s *ChainService) Spender(chainID uint64) (common.Address, bool) {
	return s.relayer.Spender(chainID)
}
