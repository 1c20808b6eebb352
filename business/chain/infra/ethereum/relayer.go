package ethereum

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/business/chain/app"
	"github.com/fd1az/paybridge/business/chain/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/logger"
)

// The executor pulls the approved amount from the payer and forwards it to the
// provider target with the provider's calldata.
const executorABIJSON = `[
{"inputs":[{"name":"payer","type":"address"},{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"target","type":"address"},{"name":"data","type":"bytes"}],"name":"execute","outputs":[],"stateMutability":"payable","type":"function"}
]`

var executorABI = mustParseABI(executorABIJSON)

var _ app.Relayer = (*Relayer)(nil)

// signer owns one chain's relayer account. mu serializes nonce allocation.
type signer struct {
	creds   domain.RelayerCredentials
	backend Backend
	gas     app.GasOracle
	signer  types.Signer

	mu         sync.Mutex
	nonce      uint64
	nonceKnown bool
}

// Relayer submits executor calls signed by per-chain sponsor keys.
type Relayer struct {
	signers map[uint64]*signer
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	relays  metric.Int64Counter
}

// RelayerChain binds credentials to the chain's backend and gas oracle.
type RelayerChain struct {
	Credentials domain.RelayerCredentials
	Backend     Backend
	Gas         app.GasOracle
}

// NewRelayer creates a Relayer. The chain set is fixed for its lifetime.
func NewRelayer(chains []RelayerChain, log logger.LoggerInterface) (*Relayer, error) {
	signers := make(map[uint64]*signer, len(chains))
	for _, c := range chains {
		signers[c.Credentials.ChainID] = &signer{
			creds:   c.Credentials,
			backend: c.Backend,
			gas:     c.Gas,
			signer:  types.LatestSignerForChainID(new(big.Int).SetUint64(c.Credentials.ChainID)),
		}
	}

	relays, err := otel.Meter(meterName).Int64Counter("relay_submissions_total",
		metric.WithDescription("Relayed transactions by chain and outcome"),
		metric.WithUnit("{tx}"))
	if err != nil {
		return nil, err
	}

	return &Relayer{
		signers: signers,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
		relays:  relays,
	}, nil
}

// Spender returns the executor payers approve on chainID.
func (r *Relayer) Spender(chainID uint64) (common.Address, bool) {
	s, ok := r.signers[chainID]
	if !ok {
		return common.Address{}, false
	}
	return s.creds.Executor, true
}

// Relay wraps req in an executor call, signs it and broadcasts it.
func (r *Relayer) Relay(ctx context.Context, req domain.RelayRequest) (common.Hash, error) {
	ctx, span := r.tracer.Start(ctx, "relayer.relay", trace.WithAttributes(
		attribute.Int64("chain_id", int64(req.ChainID)),
		attribute.String("payer", req.Payer.Hex()),
		attribute.String("target", req.Call.To.Hex()),
	))
	defer span.End()

	s, ok := r.signers[req.ChainID]
	if !ok {
		err := apperror.New(apperror.CodeRelayerNotConfigured,
			apperror.WithContext("no relayer for chain"))
		span.RecordError(err)
		return common.Hash{}, err
	}

	hash, err := r.submit(ctx, s, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "relay failed")
	}
	r.relays.Add(ctx, 1, metric.WithAttributes(
		attribute.Int64("chain_id", int64(req.ChainID)),
		attribute.String("outcome", outcome),
	))
	if err != nil {
		return common.Hash{}, err
	}

	span.SetAttributes(attribute.String("tx_hash", hash.Hex()))
	r.logger.Info(ctx, "relayed transaction", "chain_id", req.ChainID, "tx_hash", hash.Hex(), "payer", req.Payer.Hex())
	return hash, nil
}

func (r *Relayer) submit(ctx context.Context, s *signer, req domain.RelayRequest) (common.Hash, error) {
	data, err := executorABI.Pack("execute", req.Payer, req.Token, req.Amount, req.Call.To, req.Call.Data)
	if err != nil {
		return common.Hash{}, apperror.New(apperror.CodeRelayFailed,
			apperror.WithCause(err), apperror.WithContext("encode executor call"))
	}
	value := req.Call.Value
	if value == nil {
		value = new(big.Int)
	}
	call := domain.Call{To: s.creds.Executor, Data: data, Value: value}

	price, err := s.gas.GetGasPrice(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	gasLimit, err := s.gas.EstimateGas(ctx, s.creds.From, call)
	if err != nil {
		return common.Hash{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.nonceKnown {
		n, err := s.backend.PendingNonceAt(ctx, s.creds.From)
		if err != nil {
			return common.Hash{}, apperror.New(apperror.CodeRelayFailed,
				apperror.WithCause(err), apperror.WithContext("pending nonce"))
		}
		s.nonce = n
		s.nonceKnown = true
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    s.nonce,
		GasPrice: price.Wei,
		Gas:      gasLimit,
		To:       &call.To,
		Value:    call.Value,
		Data:     call.Data,
	})
	signed, err := types.SignTx(tx, s.signer, s.creds.Key)
	if err != nil {
		return common.Hash{}, apperror.New(apperror.CodeRelayFailed,
			apperror.WithCause(err), apperror.WithContext("sign"))
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		// resync from the node on the next submission
		s.nonceKnown = false
		return common.Hash{}, apperror.New(apperror.CodeRelayFailed,
			apperror.WithCause(err), apperror.WithContext("send transaction"))
	}
	s.nonce++
	return signed.Hash(), nil
}
