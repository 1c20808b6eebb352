// Package ethereum implements the chain ports on go-ethereum's ethclient.
package ethereum

import (
	"context"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/paybridge/internal/apperror"
)

const (
	tracerName = "github.com/fd1az/paybridge/business/chain/infra/ethereum"
	meterName  = tracerName
)

// Backend is the subset of *ethclient.Client the adapters use.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

var _ Backend = (*ethclient.Client)(nil)

// Backends maps chain id to its RPC client. Built once at startup.
type Backends map[uint64]Backend

func (b Backends) get(chainID uint64) (Backend, error) {
	backend, ok := b[chainID]
	if !ok {
		return nil, apperror.New(apperror.CodeUnsupportedChain,
			apperror.WithContext("no rpc configured for chain "+strconv.FormatUint(chainID, 10)))
	}
	return backend, nil
}

// Dial connects to rpcURL and checks that the node serves wantChainID.
func Dial(ctx context.Context, rpcURL string, wantChainID uint64) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("dial "+rpcURL))
	}

	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("chain id "+rpcURL))
	}
	if id.Uint64() != wantChainID {
		client.Close()
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("rpc "+rpcURL+" serves chain "+id.String()))
	}
	return client, nil
}
