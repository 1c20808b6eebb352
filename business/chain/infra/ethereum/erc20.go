package ethereum

import (
	"context"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/business/chain/app"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/logger"
)

const erc20ABIJSON = `[
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("invalid abi: " + err.Error())
	}
	return parsed
}

var _ app.TokenReader = (*TokenReader)(nil)

// TokenReader reads ERC20 state with eth_call.
type TokenReader struct {
	backends Backends
	logger   logger.LoggerInterface
	tracer   trace.Tracer
}

// NewTokenReader creates a TokenReader over backends.
func NewTokenReader(backends Backends, log logger.LoggerInterface) *TokenReader {
	return &TokenReader{
		backends: backends,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
}

// BalanceOf returns owner's balance of token, or the native balance for the zero address.
func (r *TokenReader) BalanceOf(ctx context.Context, chainID uint64, token, owner common.Address) (*big.Int, error) {
	ctx, span := r.tracer.Start(ctx, "erc20.balance_of", trace.WithAttributes(
		attribute.Int64("chain_id", int64(chainID)),
		attribute.String("token", token.Hex()),
	))
	defer span.End()

	backend, err := r.backends.get(chainID)
	if err != nil {
		return nil, err
	}

	if token == (common.Address{}) {
		bal, err := backend.BalanceAt(ctx, owner, nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "balance")
			return nil, rpcError(err, chainID, "native balance")
		}
		return bal, nil
	}

	bal, err := r.call(ctx, backend, token, "balanceOf", owner)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "balanceOf")
		return nil, rpcError(err, chainID, "balanceOf")
	}
	r.logger.Debug(ctx, "erc20 balance", "chain_id", chainID, "token", token.Hex(), "owner", owner.Hex(), "balance", bal.String())
	return bal, nil
}

// Allowance returns the amount spender may pull from owner.
func (r *TokenReader) Allowance(ctx context.Context, chainID uint64, token, owner, spender common.Address) (*big.Int, error) {
	ctx, span := r.tracer.Start(ctx, "erc20.allowance", trace.WithAttributes(
		attribute.Int64("chain_id", int64(chainID)),
		attribute.String("token", token.Hex()),
		attribute.String("spender", spender.Hex()),
	))
	defer span.End()

	backend, err := r.backends.get(chainID)
	if err != nil {
		return nil, err
	}

	allowance, err := r.call(ctx, backend, token, "allowance", owner, spender)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "allowance")
		return nil, rpcError(err, chainID, "allowance")
	}
	return allowance, nil
}

func (r *TokenReader) call(ctx context.Context, backend Backend, token common.Address, method string, args ...any) (*big.Int, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	values, err := erc20ABI.Unpack(method, out)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithContext(method+": unexpected output"))
	}
	return v, nil
}

func rpcError(err error, chainID uint64, op string) error {
	return apperror.New(apperror.CodeChainRPCError,
		apperror.WithCause(err),
		apperror.WithContext(op+" on chain "+strconv.FormatUint(chainID, 10)))
}
