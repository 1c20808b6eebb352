// Package intents adapts a 1Click-style intents API, where the payer sends
// funds to a one-time deposit address instead of calling a contract.
package intents

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/business/routing/app"
	"github.com/fd1az/paybridge/business/routing/domain"
	"github.com/fd1az/paybridge/business/routing/infra/vendor"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/httpclient"
	"github.com/fd1az/paybridge/internal/logger"
)

const (
	tracerName = "github.com/fd1az/paybridge/business/routing/infra/intents"

	// Name is the registry key.
	Name = "intents"

	quoteEndpoint  = "/v0/quote"
	statusEndpoint = "/v0/status"

	// depositWindow is how long the deposit address accepts funds.
	depositWindow = 30 * time.Minute
)

var liquidityHints = []string{"amount is too low", "no quotes", "insufficient liquidity"}

var _ app.Provider = (*Provider)(nil)

// Provider quotes deposit-address routes.
type Provider struct {
	cfg    vendor.Config
	client httpclient.Client
	logger logger.LoggerInterface
	tracer trace.Tracer
	now    func() time.Time
}

// New creates an intents provider. APIKey is sent as a bearer token.
func New(cfg vendor.Config, log logger.LoggerInterface) (*Provider, error) {
	tracer := otel.Tracer(tracerName)
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	client, err := vendor.NewClient(Name, cfg, tracer, headers)
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client, logger: log, tracer: tracer, now: time.Now}, nil
}

// Name implements app.Provider.
func (p *Provider) Name() string { return Name }

// Quote implements app.Provider. The quote is live (dry=false) so that the
// answer carries a deposit address.
func (p *Provider) Quote(ctx context.Context, r domain.Route, amount asset.Amount) (domain.ProviderQuote, error) {
	ctx, span := p.tracer.Start(ctx, "intents.quote", trace.WithAttributes(
		attribute.Int64("from_chain", int64(r.FromChain())),
		attribute.Int64("to_chain", int64(r.ToChain())),
		attribute.String("amount", amount.RawString()),
	))
	defer span.End()

	origin, err := assetID(r.From)
	if err != nil {
		return domain.ProviderQuote{}, invalidRoute(err)
	}
	dest, err := assetID(r.To)
	if err != nil {
		return domain.ProviderQuote{}, invalidRoute(err)
	}

	body := quoteRequest{
		SwapType:          "EXACT_INPUT",
		SlippageTolerance: p.cfg.SlippageBps,
		OriginAsset:       origin,
		DepositType:       "ORIGIN_CHAIN",
		DestinationAsset:  dest,
		Amount:            amount.RawString(),
		RefundTo:          r.FromAddress,
		RefundType:        "ORIGIN_CHAIN",
		Recipient:         r.ToAddress,
		RecipientType:     "DESTINATION_CHAIN",
		Deadline:          p.now().Add(depositWindow).UTC().Format(time.RFC3339),
		Referral:          p.cfg.Integrator,
	}

	var resp quoteResponse
	if _, err := p.client.NewRequestWithOptions(
		httpclient.WithEndpoint("quote"),
		httpclient.WithResponseErrorHandler(vendor.ErrorHandler(Name, liquidityHints...)),
		vendor.LogHeaders(),
	).SetBody(body).SetResult(&resp).Post(ctx, quoteEndpoint); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote")
		return domain.ProviderQuote{}, vendor.Wrap(Name, err)
	}

	q, err := normalize(r, amount, resp.Quote)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalize")
		return domain.ProviderQuote{}, err
	}

	p.logger.Debug(ctx, "intents quote",
		"deposit_address", q.Payload.DepositAddress,
		"to_amount_min", q.DestAmountMin.RawString())
	return q, nil
}

func normalize(r domain.Route, amount asset.Amount, q quote) (domain.ProviderQuote, error) {
	if q.DepositAddress == "" {
		return domain.ProviderQuote{}, vendor.Malformed(Name, "depositAddress")
	}
	from := amount
	if q.AmountIn != "" {
		v, err := vendor.ParseAmount(Name, r.From, q.AmountIn, "amountIn")
		if err != nil {
			return domain.ProviderQuote{}, err
		}
		from = v
	}
	out, err := vendor.ParseAmount(Name, r.To, q.AmountOut, "amountOut")
	if err != nil {
		return domain.ProviderQuote{}, err
	}
	minOut, err := vendor.ParseAmount(Name, r.To, q.MinAmountOut, "minAmountOut")
	if err != nil {
		return domain.ProviderQuote{}, err
	}

	return domain.ProviderQuote{
		FromAmount:    from,
		DestAmount:    out,
		DestAmountMin: minOut,
		Payload: domain.ExecutionPayload{
			Kind:           domain.PayloadDepositAddress,
			DepositAddress: q.DepositAddress,
			DepositMemo:    q.DepositMemo,
		},
		RequestID: q.DepositAddress,
	}, nil
}

// Status implements app.Provider. Swaps are tracked by deposit address.
func (p *Provider) Status(ctx context.Context, req domain.StatusRequest) (domain.ProviderStatus, error) {
	ctx, span := p.tracer.Start(ctx, "intents.status",
		trace.WithAttributes(attribute.String("deposit_address", req.DepositAddress)))
	defer span.End()

	if req.DepositAddress == "" {
		return domain.ProviderStatus{}, apperror.New(apperror.CodeStatusCheck,
			apperror.WithContext("intents status needs a deposit address"))
	}

	var resp statusResponse
	raw, err := p.client.NewRequestWithOptions(
		httpclient.WithEndpoint("status"),
	).
		SetQueryParam("depositAddress", req.DepositAddress).
		SetResult(&resp).
		Get(ctx, statusEndpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status")
		return domain.ProviderStatus{}, vendor.Wrap(Name, err)
	}
	if raw.StatusCode == http.StatusNotFound {
		return domain.ProviderStatus{State: domain.StatusNotFound}, nil
	}
	if raw.IsError() {
		return domain.ProviderStatus{}, vendor.ErrorHandler(Name)(raw.StatusCode, raw.Body())
	}
	return mapStatus(resp), nil
}

func mapStatus(resp statusResponse) domain.ProviderStatus {
	out := domain.ProviderStatus{Substatus: resp.Status}
	if n := len(resp.SwapDetails.DestinationChainTxHashes); n > 0 {
		out.DestinationTxHash = resp.SwapDetails.DestinationChainTxHashes[n-1].Hash
	}
	switch resp.Status {
	case "SUCCESS":
		out.State = domain.StatusDone
		out.SourceConfirmed = true
	case "REFUNDED", "FAILED":
		out.State = domain.StatusFailed
		out.SourceConfirmed = true
	case "KNOWN_DEPOSIT_TX", "PROCESSING":
		out.State = domain.StatusPending
		out.SourceConfirmed = true
	default:
		// PENDING_DEPOSIT, INCOMPLETE_DEPOSIT
		out.State = domain.StatusPending
	}
	return out
}

func invalidRoute(cause error) error {
	return apperror.New(apperror.CodeInvalidRoute, apperror.WithCause(cause), apperror.WithContext(Name))
}
