package app

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/business/routing/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/logger"
)

// QuoteRequest is the caller's quote request before validation. ToAmount is a
// human decimal ("100.5").
type QuoteRequest struct {
	FromChain       uint64
	FromAsset       string
	FromAddress     string
	ToChain         uint64
	ToAsset         string
	ToAddress       string
	ToAmount        string
	Provider        string
	MerchantAddress string
	MerchantWebhook string
}

// QuoteResult is a solved quote and its signed envelope.
type QuoteResult struct {
	Quote    domain.Quote
	Envelope string
}

// QuoteService validates requests, runs the solver against the chosen
// provider and seals the result into an envelope.
type QuoteService struct {
	assets    *asset.Registry
	providers *Registry
	solver    *Solver
	codec     EnvelopeCodec
	logger    logger.LoggerInterface
	tracer    trace.Tracer
}

// NewQuoteService creates a QuoteService.
func NewQuoteService(assets *asset.Registry, providers *Registry, solver *Solver, codec EnvelopeCodec, log logger.LoggerInterface) *QuoteService {
	return &QuoteService{
		assets:    assets,
		providers: providers,
		solver:    solver,
		codec:     codec,
		logger:    log,
		tracer:    solver.tracer,
	}
}

// Providers exposes the registry so envelopes can be resolved back to providers.
func (s *QuoteService) Providers() *Registry { return s.providers }

// Quote validates req and returns a fee-inclusive quote. Validation failures
// are caller errors and never reach a provider.
func (s *QuoteService) Quote(ctx context.Context, req QuoteRequest) (QuoteResult, error) {
	ctx, span := s.tracer.Start(ctx, "routing.quote", trace.WithAttributes(
		attribute.Int64("from_chain", int64(req.FromChain)),
		attribute.Int64("to_chain", int64(req.ToChain)),
		attribute.String("provider", req.Provider),
	))
	defer span.End()

	rr, err := s.validate(req)
	if err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return QuoteResult{}, err
	}

	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		span.SetStatus(codes.Error, "unknown provider")
		return QuoteResult{}, err
	}
	rr.Provider = provider.Name()

	q, err := s.solver.Solve(ctx, provider, rr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "solve")
		s.logger.Warn(ctx, "quote unreachable",
			"provider", provider.Name(),
			"from", rr.From.String(), "to", rr.To.String(),
			"error", err)
		return QuoteResult{}, err
	}

	if err := checkExecutable(q); err != nil {
		span.SetStatus(codes.Error, "not executable")
		return QuoteResult{}, err
	}
	if q.RequestID == "" {
		q.RequestID = uuid.NewString()
	}

	envelope, err := s.codec.Encode(q)
	if err != nil {
		span.RecordError(err)
		return QuoteResult{}, err
	}

	s.logger.Info(ctx, "quote issued",
		"request_id", q.RequestID,
		"provider", q.Provider,
		"from_amount", q.FromAmount.String(),
		"to_amount", q.ToAmount.String(),
		"deposit", q.Payload.IsDeposit(),
		"expiry", q.Expiry)
	return QuoteResult{Quote: q, Envelope: envelope}, nil
}

func (s *QuoteService) validate(req QuoteRequest) (domain.RouteRequest, error) {
	from, err := s.lookup(req.FromChain, req.FromAsset)
	if err != nil {
		return domain.RouteRequest{}, err
	}
	to, err := s.lookup(req.ToChain, req.ToAsset)
	if err != nil {
		return domain.RouteRequest{}, err
	}
	if from.Equals(to) {
		return domain.RouteRequest{}, apperror.New(apperror.CodeInvalidRoute,
			apperror.WithMessage("Source and destination asset are identical"))
	}

	fromAddr, err := address(req.FromChain, req.FromAddress, "fromAddress")
	if err != nil {
		return domain.RouteRequest{}, err
	}
	toAddr, err := address(req.ToChain, req.ToAddress, "toAddress")
	if err != nil {
		return domain.RouteRequest{}, err
	}

	merchant := toAddr
	if req.MerchantAddress != "" {
		if merchant, err = address(req.ToChain, req.MerchantAddress, "merchantAddress"); err != nil {
			return domain.RouteRequest{}, err
		}
	}

	if req.MerchantWebhook != "" {
		u, err := url.Parse(req.MerchantWebhook)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return domain.RouteRequest{}, apperror.New(apperror.CodeInvalidInput,
				apperror.WithMessage("merchantWebhook must be an http(s) URL"))
		}
	}

	amount, err := asset.ParseString(to, strings.TrimSpace(req.ToAmount))
	if err != nil || !amount.IsPositive() {
		return domain.RouteRequest{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithMessage("toAmount must be a positive decimal within "+to.Symbol()+" precision"),
			apperror.WithCause(err))
	}

	return domain.RouteRequest{
		Route: domain.Route{
			From:        from,
			To:          to,
			FromAddress: fromAddr,
			ToAddress:   toAddr,
		},
		ToAmount:        amount,
		MerchantAddress: merchant,
		MerchantWebhook: req.MerchantWebhook,
	}, nil
}

func (s *QuoteService) lookup(chainID uint64, ref string) (*asset.Asset, error) {
	if chainID == asset.ChainIDFiat {
		return nil, apperror.New(apperror.CodeUnsupportedChain, apperror.WithContext("fiat"))
	}
	a, err := s.assets.Lookup(chainID, ref)
	if err != nil {
		return nil, apperror.New(apperror.CodeUnknownAsset,
			apperror.WithCause(err),
			apperror.WithMessage("Asset "+ref+" is not supported on "+asset.ChainName(chainID)))
	}
	return a, nil
}

func address(chainID uint64, addr, field string) (string, error) {
	if strings.TrimSpace(addr) == "" {
		return "", apperror.New(apperror.CodeRequiredField, apperror.WithMessage(field+" is required"))
	}
	normalized, err := asset.NormalizeAddress(chainID, addr)
	if err != nil {
		return "", apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithMessage(field+" is not a valid "+string(asset.FamilyOf(chainID))+" address"))
	}
	return normalized, nil
}

// checkExecutable rejects quotes the relayer cannot submit: a contract call
// must start on a programmable chain and pull an ERC20 the payer approved.
func checkExecutable(q domain.Quote) error {
	if q.Payload.IsDeposit() {
		return nil
	}
	if !asset.FamilyOf(q.Route.FromChain()).Programmable() {
		return apperror.New(apperror.CodeInvalidRoute,
			apperror.WithMessage("Provider requires a contract call on a chain without relaying"))
	}
	if q.Route.From.IsNative() {
		return apperror.New(apperror.CodeInvalidRoute,
			apperror.WithMessage("Native source assets are only supported by deposit-address providers"))
	}
	return nil
}
