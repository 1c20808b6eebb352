// Package squid adapts the Squid v2 router API to the routing Provider port.
package squid

import (
	"context"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/business/routing/app"
	"github.com/fd1az/paybridge/business/routing/domain"
	"github.com/fd1az/paybridge/business/routing/infra/vendor"
	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/httpclient"
	"github.com/fd1az/paybridge/internal/logger"
)

const (
	tracerName = "github.com/fd1az/paybridge/business/routing/infra/squid"

	// Name is the registry key.
	Name = "squid"

	routeEndpoint  = "/v2/route"
	statusEndpoint = "/v2/status"

	integratorHeader = "x-integrator-id"
	requestIDHeader  = "x-request-id"

	nativeToken = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"
)

var liquidityHints = []string{"low liquidity", "insufficient liquidity", "no route found", "amount too low"}

var _ app.Provider = (*Provider)(nil)

// Provider quotes and tracks transfers through Squid.
type Provider struct {
	cfg    vendor.Config
	client httpclient.Client
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// New creates a Squid provider. Integrator is the required integrator id.
func New(cfg vendor.Config, log logger.LoggerInterface) (*Provider, error) {
	tracer := otel.Tracer(tracerName)
	client, err := vendor.NewClient(Name, cfg, tracer, map[string]string{integratorHeader: cfg.Integrator})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client, logger: log, tracer: tracer}, nil
}

// Name implements app.Provider.
func (p *Provider) Name() string { return Name }

// Quote implements app.Provider.
func (p *Provider) Quote(ctx context.Context, r domain.Route, amount asset.Amount) (domain.ProviderQuote, error) {
	ctx, span := p.tracer.Start(ctx, "squid.route", trace.WithAttributes(
		attribute.Int64("from_chain", int64(r.FromChain())),
		attribute.Int64("to_chain", int64(r.ToChain())),
		attribute.String("amount", amount.RawString()),
	))
	defer span.End()

	body := routeRequest{
		FromAddress: p.cfg.Sender(r),
		FromChain:   vendor.Chain(r.FromChain()),
		FromToken:   vendor.TokenRef(r.From, nativeToken),
		FromAmount:  amount.RawString(),
		ToChain:     vendor.Chain(r.ToChain()),
		ToToken:     vendor.TokenRef(r.To, nativeToken),
		ToAddress:   r.ToAddress,
	}
	if p.cfg.SlippageBps > 0 {
		body.Slippage = float64(p.cfg.SlippageBps) / 100
	}

	var resp routeResponse
	raw, err := p.client.NewRequestWithOptions(
		httpclient.WithEndpoint("route"),
		httpclient.WithResponseErrorHandler(vendor.ErrorHandler(Name, liquidityHints...)),
		vendor.LogHeaders(),
	).
		SetBody(body).
		SetResult(&resp).
		Post(ctx, routeEndpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "route")
		return domain.ProviderQuote{}, vendor.Wrap(Name, err)
	}

	requestID := raw.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = resp.Route.QuoteID
	}
	q, err := normalize(r, amount, resp.Route, requestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalize")
		return domain.ProviderQuote{}, err
	}

	p.logger.Debug(ctx, "squid route",
		"request_id", requestID,
		"to_amount_min", q.DestAmountMin.RawString())
	return q, nil
}

func normalize(r domain.Route, amount asset.Amount, rt route, requestID string) (domain.ProviderQuote, error) {
	tx := rt.TransactionRequest
	if tx == nil || tx.Target == "" {
		return domain.ProviderQuote{}, vendor.Malformed(Name, "transactionRequest")
	}

	from := amount
	if rt.Estimate.FromAmount != "" {
		v, err := vendor.ParseAmount(Name, r.From, rt.Estimate.FromAmount, "fromAmount")
		if err != nil {
			return domain.ProviderQuote{}, err
		}
		from = v
	}
	dest, err := vendor.ParseAmount(Name, r.To, rt.Estimate.ToAmount, "toAmount")
	if err != nil {
		return domain.ProviderQuote{}, err
	}
	destMin, err := vendor.ParseAmount(Name, r.To, rt.Estimate.ToAmountMin, "toAmountMin")
	if err != nil {
		return domain.ProviderQuote{}, err
	}
	data, err := vendor.DecodeCallData(tx.Data)
	if err != nil {
		return domain.ProviderQuote{}, vendor.Malformed(Name, "transactionRequest.data")
	}
	value, err := vendor.ParseValue(tx.Value)
	if err != nil {
		return domain.ProviderQuote{}, vendor.Malformed(Name, "transactionRequest.value")
	}

	return domain.ProviderQuote{
		FromAmount:    from,
		DestAmount:    dest,
		DestAmountMin: destMin,
		Fees: domain.FeeBreakdown{
			Protocol: vendor.SumFees(r.From, toFees(rt.Estimate.FeeCosts)),
			Gas:      vendor.SumFees(r.From, toFees(rt.Estimate.GasCosts)),
		},
		Payload: domain.ExecutionPayload{
			Kind:     domain.PayloadContractCall,
			Target:   tx.Target,
			CallData: data,
			Value:    value,
			// Squid pulls tokens from the caller through its router.
			ApprovalAddress: tx.Target,
		},
		RequestID: requestID,
	}, nil
}

func toFees(costs []cost) []vendor.Fee {
	out := make([]vendor.Fee, 0, len(costs))
	for _, c := range costs {
		chainID, _ := strconv.ParseUint(c.Token.ChainID, 10, 64)
		out = append(out, vendor.Fee{ChainID: chainID, Token: c.Token.Address, Amount: c.Amount})
	}
	return out
}

// Status implements app.Provider.
func (p *Provider) Status(ctx context.Context, req domain.StatusRequest) (domain.ProviderStatus, error) {
	ctx, span := p.tracer.Start(ctx, "squid.status", trace.WithAttributes(attribute.String("tx_hash", req.TxHash)))
	defer span.End()

	var resp statusResponse
	raw, err := p.client.NewRequestWithOptions(
		httpclient.WithEndpoint("status"),
	).
		SetQueryParam("transactionId", req.TxHash).
		SetQueryParam("requestId", req.RequestID).
		SetQueryParam("fromChainId", vendor.Chain(req.FromChain)).
		SetQueryParam("toChainId", vendor.Chain(req.ToChain)).
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
	out := domain.ProviderStatus{
		Substatus:         resp.Status,
		DestinationTxHash: resp.ToChain.TransactionID,
		SourceConfirmed:   resp.FromChain.TransactionID != "",
	}
	switch resp.SquidTransactionStatus {
	case "success":
		out.State = domain.StatusDone
	case "partial_success", "refund", "failed":
		out.State = domain.StatusFailed
	case "not_found":
		out.State = domain.StatusNotFound
	default:
		out.State = domain.StatusPending
	}
	return out
}
