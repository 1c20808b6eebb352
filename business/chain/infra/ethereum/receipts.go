package ethereum

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/business/chain/app"
	"github.com/fd1az/paybridge/business/chain/domain"
	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/circuitbreaker"
)

var _ app.ReceiptReader = (*ReceiptReader)(nil)

// ReceiptReader fetches receipts through a per-chain circuit breaker.
type ReceiptReader struct {
	backends Backends
	breakers map[uint64]*circuitbreaker.CircuitBreaker[*types.Receipt]
	tracer   trace.Tracer
}

// NewReceiptReader creates a ReceiptReader over backends.
func NewReceiptReader(backends Backends) *ReceiptReader {
	breakers := make(map[uint64]*circuitbreaker.CircuitBreaker[*types.Receipt], len(backends))
	for id := range backends {
		cfg := circuitbreaker.DefaultConfig("receipts-" + asset.ChainName(id))
		// a pending transaction is a normal answer, not a node failure
		cfg.IsSuccessful = func(err error) bool {
			return err == nil || errors.Is(err, ethereum.NotFound)
		}
		breakers[id] = circuitbreaker.New[*types.Receipt](cfg)
	}
	return &ReceiptReader{
		backends: backends,
		breakers: breakers,
		tracer:   otel.Tracer(tracerName),
	}
}

// Receipt returns domain.ErrReceiptNotFound until hash is mined.
func (r *ReceiptReader) Receipt(ctx context.Context, chainID uint64, hash common.Hash) (*domain.Receipt, error) {
	ctx, span := r.tracer.Start(ctx, "chain.receipt", trace.WithAttributes(
		attribute.Int64("chain_id", int64(chainID)),
		attribute.String("tx_hash", hash.Hex()),
	))
	defer span.End()

	backend, err := r.backends.get(chainID)
	if err != nil {
		return nil, err
	}

	receipt, err := r.breakers[chainID].Execute(func() (*types.Receipt, error) {
		return backend.TransactionReceipt(ctx, hash)
	})
	if errors.Is(err, ethereum.NotFound) {
		span.AddEvent("not_found")
		return nil, domain.ErrReceiptNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "receipt")
		return nil, rpcError(err, chainID, "receipt")
	}

	span.SetAttributes(attribute.Int64("status", int64(receipt.Status)))
	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}
	return &domain.Receipt{
		TxHash:      hash,
		BlockNumber: block,
		GasUsed:     receipt.GasUsed,
		Succeeded:   receipt.Status == types.ReceiptStatusSuccessful,
	}, nil
}
