// Package lifi adapts the LI.FI aggregation API to the routing Provider port.
package lifi

import (
	"context"
	"net/http"

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
	tracerName = "github.com/fd1az/paybridge/business/routing/infra/lifi"

	// Name is the registry key.
	Name = "lifi"

	quoteEndpoint  = "/v1/quote"
	statusEndpoint = "/v1/status"

	nativeToken = "0x0000000000000000000000000000000000000000"
)

var liquidityHints = []string{"no available quotes", "insufficient liquidity", "amount too low"}

var _ app.Provider = (*Provider)(nil)

// Provider quotes and tracks transfers through LI.FI.
type Provider struct {
	cfg    vendor.Config
	client httpclient.Client
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// New creates a LI.FI provider.
func New(cfg vendor.Config, log logger.LoggerInterface) (*Provider, error) {
	tracer := otel.Tracer(tracerName)
	client, err := vendor.NewClient(Name, cfg, tracer, map[string]string{"x-lifi-api-key": cfg.APIKey})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client, logger: log, tracer: tracer}, nil
}

// Name implements app.Provider.
func (p *Provider) Name() string { return Name }

// Quote implements app.Provider.
func (p *Provider) Quote(ctx context.Context, route domain.Route, amount asset.Amount) (domain.ProviderQuote, error) {
	ctx, span := p.tracer.Start(ctx, "lifi.quote", trace.WithAttributes(
		attribute.Int64("from_chain", int64(route.FromChain())),
		attribute.Int64("to_chain", int64(route.ToChain())),
		attribute.String("amount", amount.RawString()),
	))
	defer span.End()

	req := p.client.NewRequestWithOptions(
		httpclient.WithEndpoint("quote"),
		httpclient.WithResponseErrorHandler(vendor.ErrorHandler(Name, liquidityHints...)),
		vendor.LogHeaders(),
	).
		SetQueryParam("fromChain", vendor.Chain(route.FromChain())).
		SetQueryParam("toChain", vendor.Chain(route.ToChain())).
		SetQueryParam("fromToken", vendor.TokenRef(route.From, nativeToken)).
		SetQueryParam("toToken", vendor.TokenRef(route.To, nativeToken)).
		SetQueryParam("fromAmount", amount.RawString()).
		SetQueryParam("fromAddress", p.cfg.Sender(route)).
		SetQueryParam("toAddress", route.ToAddress).
		SetQueryParam("integrator", p.cfg.Integrator)
	if p.cfg.SlippageBps > 0 {
		req = req.SetQueryParam("slippage", p.cfg.Slippage().String())
	}

	var resp quoteResponse
	if _, err := req.SetResult(&resp).Get(ctx, quoteEndpoint); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote")
		return domain.ProviderQuote{}, vendor.Wrap(Name, err)
	}

	q, err := p.normalize(route, amount, resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalize")
		return domain.ProviderQuote{}, err
	}

	p.logger.Debug(ctx, "lifi quote",
		"tool", resp.Tool,
		"from_amount", q.FromAmount.RawString(),
		"to_amount_min", q.DestAmountMin.RawString())
	return q, nil
}

func (p *Provider) normalize(route domain.Route, amount asset.Amount, resp quoteResponse) (domain.ProviderQuote, error) {
	if resp.TransactionRequest == nil {
		return domain.ProviderQuote{}, vendor.Malformed(Name, "transactionRequest")
	}

	from := amount
	if resp.Estimate.FromAmount != "" {
		v, err := vendor.ParseAmount(Name, route.From, resp.Estimate.FromAmount, "fromAmount")
		if err != nil {
			return domain.ProviderQuote{}, err
		}
		from = v
	}
	dest, err := vendor.ParseAmount(Name, route.To, resp.Estimate.ToAmount, "toAmount")
	if err != nil {
		return domain.ProviderQuote{}, err
	}
	destMin, err := vendor.ParseAmount(Name, route.To, resp.Estimate.ToAmountMin, "toAmountMin")
	if err != nil {
		return domain.ProviderQuote{}, err
	}

	data, err := vendor.DecodeCallData(resp.TransactionRequest.Data)
	if err != nil {
		return domain.ProviderQuote{}, vendor.Malformed(Name, "transactionRequest.data")
	}
	value, err := vendor.ParseValue(resp.TransactionRequest.Value)
	if err != nil {
		return domain.ProviderQuote{}, vendor.Malformed(Name, "transactionRequest.value")
	}

	fees := make([]vendor.Fee, 0, len(resp.Estimate.FeeCosts))
	for _, f := range resp.Estimate.FeeCosts {
		fees = append(fees, vendor.Fee{ChainID: f.Token.ChainID, Token: f.Token.Address, Amount: f.Amount, Included: f.Included})
	}
	gas := make([]vendor.Fee, 0, len(resp.Estimate.GasCosts))
	for _, g := range resp.Estimate.GasCosts {
		gas = append(gas, vendor.Fee{ChainID: g.Token.ChainID, Token: g.Token.Address, Amount: g.Amount})
	}

	approval := resp.Estimate.ApprovalAddress
	if approval == "" {
		approval = resp.TransactionRequest.To
	}

	return domain.ProviderQuote{
		FromAmount:    from,
		DestAmount:    dest,
		DestAmountMin: destMin,
		Fees: domain.FeeBreakdown{
			Protocol: vendor.SumFees(route.From, fees),
			Gas:      vendor.SumFees(route.From, gas),
		},
		Payload: domain.ExecutionPayload{
			Kind:            domain.PayloadContractCall,
			Target:          resp.TransactionRequest.To,
			CallData:        data,
			Value:           value,
			ApprovalAddress: approval,
		},
		RequestID: resp.ID,
	}, nil
}

// Status implements app.Provider.
func (p *Provider) Status(ctx context.Context, req domain.StatusRequest) (domain.ProviderStatus, error) {
	ctx, span := p.tracer.Start(ctx, "lifi.status", trace.WithAttributes(attribute.String("tx_hash", req.TxHash)))
	defer span.End()

	var resp statusResponse
	raw, err := p.client.NewRequestWithOptions(
		httpclient.WithEndpoint("status"),
	).
		SetQueryParam("txHash", req.TxHash).
		SetQueryParam("fromChain", vendor.Chain(req.FromChain)).
		SetQueryParam("toChain", vendor.Chain(req.ToChain)).
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
		Substatus:         resp.Substatus,
		DestinationTxHash: resp.Receiving.TxHash,
		SourceConfirmed:   resp.Sending.TxHash != "",
	}
	switch resp.Status {
	case "DONE":
		out.State = domain.StatusDone
		// PARTIAL and REFUNDED substatuses did not deliver the requested asset.
		if resp.Substatus == "REFUNDED" || resp.Substatus == "PARTIAL" {
			out.State = domain.StatusFailed
		}
	case "FAILED", "INVALID":
		out.State = domain.StatusFailed
	case "NOT_FOUND":
		out.State = domain.StatusNotFound
	default:
		out.State = domain.StatusPending
	}
	return out
}
