package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chain "github.com/fd1az/paybridge/business/chain/domain"
	routing "github.com/fd1az/paybridge/business/routing/domain"
	settlement "github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/logger"
)

const (
	tracerName = "github.com/fd1az/paybridge/business/execution/app"
	meterName  = "github.com/fd1az/paybridge/business/execution/app"

	// claimGrace keeps a used envelope claimed past its expiry.
	claimGrace = time.Minute
)

// ExecuteRequest is one execution attempt. DepositTxHash is only meaningful
// for deposit-address routes, where the payer broadcasts the transfer.
type ExecuteRequest struct {
	Envelope      string
	AuthToken     string
	DepositTxHash string
}

// Result identifies the submitted transfer. TxHash is the relayed source
// transaction, or the deposit tx hash or address for deposit routes.
type Result struct {
	TxHash  string
	EventID string
	Deposit bool
}

// Service validates envelopes and submits them on the payer's behalf.
type Service struct {
	auth      Authenticator
	envelopes EnvelopeDecoder
	providers ProviderResolver
	chain     Chain
	ledger    Ledger
	claims    ReplayGuard
	logger    logger.LoggerInterface
	tracer    trace.Tracer
	outcomes  metric.Int64Counter
	now       func() time.Time
	newID     func() string
}

// NewService creates a Service.
func NewService(auth Authenticator, envelopes EnvelopeDecoder, providers ProviderResolver, ch Chain, ledger Ledger, claims ReplayGuard, log logger.LoggerInterface) (*Service, error) {
	outcomes, err := otel.Meter(meterName).Int64Counter("executions_total",
		metric.WithDescription("Execution attempts by provider and outcome"))
	if err != nil {
		return nil, err
	}
	return &Service{
		auth:      auth,
		envelopes: envelopes,
		providers: providers,
		chain:     ch,
		ledger:    ledger,
		claims:    claims,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
		outcomes:  outcomes,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// Execute checks, in order, the caller's token, the envelope's expiry, the
// payer's balance and, for contract routes, the payer's allowance to the
// executor. The first failure is returned and nothing is submitted. On
// success the relayed hash is returned without waiting for inclusion.
func (s *Service) Execute(ctx context.Context, req ExecuteRequest) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "execution.execute")
	defer span.End()

	res, provider, err := s.execute(ctx, req)

	outcome := "ok"
	if err != nil {
		outcome = string(apperror.GetCode(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	s.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
	return res, err
}

func (s *Service) execute(ctx context.Context, req ExecuteRequest) (Result, string, error) {
	subject, err := s.auth.Verify(req.AuthToken)
	if err != nil {
		return Result{}, "", err
	}

	q, err := s.envelopes.Decode(req.Envelope)
	if err != nil {
		return Result{}, "", err
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("request_id", q.RequestID),
		attribute.String("provider", q.Provider),
		attribute.Int64("from_chain", int64(q.Route.FromChain())),
	)

	now := s.now()
	if q.Expired(now) {
		return Result{}, q.Provider, apperror.New(apperror.CodeQuoteExpired,
			apperror.WithContext(q.Expiry.UTC().Format(time.RFC3339)))
	}
	// the envelope carries the provider payload; the lookup only rejects
	// providers that are no longer registered
	if _, err := s.providers.Get(q.Provider); err != nil {
		return Result{}, q.Provider, err
	}

	if q.Payload.IsDeposit() {
		res, err := s.openDeposit(ctx, q, req.DepositTxHash, now)
		return res, q.Provider, err
	}
	res, err := s.relay(ctx, q, now)
	if err == nil {
		s.logger.Info(ctx, "execution submitted",
			"tx_hash", res.TxHash, "request_id", q.RequestID, "provider", q.Provider, "subject", subject)
	}
	return res, q.Provider, err
}

func (s *Service) relay(ctx context.Context, q routing.Quote, now time.Time) (Result, error) {
	chainID := q.Route.FromChain()
	if q.Route.From.IsNative() {
		return Result{}, apperror.New(apperror.CodeInvalidRoute,
			apperror.WithContext("native source assets are paid through a deposit route"))
	}
	if !s.chain.Supports(chainID) {
		return Result{}, apperror.New(apperror.CodeUnsupportedChain,
			apperror.WithContext(q.Route.From.String()))
	}
	payer, err := payerAddress(q)
	if err != nil {
		return Result{}, err
	}
	token := common.HexToAddress(q.Route.From.Address())
	amount := q.FromAmount.Raw()

	if err := s.checkBalance(ctx, chainID, token, payer, amount); err != nil {
		return Result{}, err
	}

	spender, ok := s.chain.Spender(chainID)
	if !ok {
		return Result{}, apperror.New(apperror.CodeRelayerNotConfigured,
			apperror.WithContext(q.Route.From.String()))
	}
	allowance, err := s.chain.Allowance(ctx, chainID, token, payer, spender)
	if err != nil {
		return Result{}, err
	}
	if allowance.Cmp(amount) < 0 {
		return Result{}, apperror.New(apperror.CodeInsufficientAllowance,
			apperror.WithContext("approved "+allowance.String()+", need "+amount.String()))
	}

	if err := s.claim(ctx, q, now); err != nil {
		return Result{}, err
	}

	value := q.Payload.Value
	if value == nil {
		value = new(big.Int)
	}
	hash, err := s.chain.Relay(ctx, chain.RelayRequest{
		ChainID: chainID,
		Payer:   payer,
		Token:   token,
		Amount:  amount,
		Call: chain.Call{
			To:    common.HexToAddress(q.Payload.Target),
			Data:  q.Payload.CallData,
			Value: value,
		},
	})
	if err != nil {
		s.claims.Delete(ctx, q.RequestID)
		if !apperror.IsAppError(err) {
			err = apperror.New(apperror.CodeRelayFailed, apperror.WithCause(err))
		}
		return Result{}, err
	}

	e := settlement.NewEvent(s.newID(), hash.Hex(), q, now)
	if err := s.ledger.Open(ctx, e); err != nil {
		// The transaction is already broadcast; the caller still needs its hash.
		s.logger.Error(ctx, "failed to open settlement", "tx_hash", e.TxHash, "event_id", e.ID, "error", err)
	}
	return Result{TxHash: e.TxHash, EventID: e.ID}, nil
}

// openDeposit registers tracking for a deposit-address route. The payer sends
// the funds; no transaction is relayed and no allowance is involved.
func (s *Service) openDeposit(ctx context.Context, q routing.Quote, depositTxHash string, now time.Time) (Result, error) {
	chainID := q.Route.FromChain()
	if depositTxHash == "" && s.chain.Supports(chainID) {
		payer, err := payerAddress(q)
		if err != nil {
			return Result{}, err
		}
		token := common.HexToAddress(q.Route.From.Address())
		if err := s.checkBalance(ctx, chainID, token, payer, q.FromAmount.Raw()); err != nil {
			return Result{}, err
		}
	}

	if err := s.claim(ctx, q, now); err != nil {
		return Result{}, err
	}

	key := depositTxHash
	if key == "" {
		key = q.Payload.DepositAddress
	}
	e := settlement.NewEvent(s.newID(), key, q, now)
	if err := s.ledger.Open(ctx, e); err != nil {
		s.claims.Delete(ctx, q.RequestID)
		return Result{}, err
	}

	s.logger.Info(ctx, "deposit route registered",
		"tx_hash", key, "deposit_address", q.Payload.DepositAddress, "request_id", q.RequestID, "provider", q.Provider)
	return Result{TxHash: key, EventID: e.ID, Deposit: true}, nil
}

func (s *Service) checkBalance(ctx context.Context, chainID uint64, token, payer common.Address, amount *big.Int) error {
	balance, err := s.chain.BalanceOf(ctx, chainID, token, payer)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return apperror.New(apperror.CodeInsufficientBalance,
			apperror.WithContext("balance "+balance.String()+", need "+amount.String()))
	}
	return nil
}

func (s *Service) claim(ctx context.Context, q routing.Quote, now time.Time) error {
	ttl := q.Expiry.Sub(now) + claimGrace
	if !s.claims.Add(ctx, q.RequestID, q.Provider, ttl) {
		return apperror.New(apperror.CodeEnvelopeUsed, apperror.WithContext(q.RequestID))
	}
	return nil
}

func payerAddress(q routing.Quote) (common.Address, error) {
	if !common.IsHexAddress(q.Route.FromAddress) {
		return common.Address{}, apperror.New(apperror.CodeInvalidRoute,
			apperror.WithContext("payer address is not an EVM address"))
	}
	return common.HexToAddress(q.Route.FromAddress), nil
}
