// Package debridge adapts the deBridge Liquidity Network (DLN) API to the
// routing Provider port.
package debridge

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"

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
	tracerName = "github.com/fd1az/paybridge/business/routing/infra/debridge"

	// Name is the registry key.
	Name = "debridge"

	createTxEndpoint = "/v1.0/dln/order/create-tx"
	orderIDsPath     = "/api/Transaction/%s/orderIds"
	orderPath        = "/api/Orders/%s"

	nativeToken = "0x0000000000000000000000000000000000000000"
)

// DLN uses internal ids for non-EVM chains.
var dlnChainIDs = map[uint64]string{
	asset.ChainIDTron:   "100000026",
	asset.ChainIDSolana: "7565164",
}

var liquidityHints = []string{"ERROR_LOW_GIVE_AMOUNT", "INSUFFICIENT_LIQUIDITY", "liquidity"}

var _ app.Provider = (*Provider)(nil)

// Provider quotes and tracks DLN orders.
type Provider struct {
	cfg    vendor.Config
	client httpclient.Client
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// New creates a deBridge provider. StatusURL points at the DLN stats API.
func New(cfg vendor.Config, log logger.LoggerInterface) (*Provider, error) {
	tracer := otel.Tracer(tracerName)
	client, err := vendor.NewClient(Name, cfg, tracer, nil)
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client, logger: log, tracer: tracer}, nil
}

// Name implements app.Provider.
func (p *Provider) Name() string { return Name }

func chainID(id uint64) string {
	if s, ok := dlnChainIDs[id]; ok {
		return s
	}
	return vendor.Chain(id)
}

// Quote implements app.Provider.
func (p *Provider) Quote(ctx context.Context, r domain.Route, amount asset.Amount) (domain.ProviderQuote, error) {
	ctx, span := p.tracer.Start(ctx, "debridge.create_tx", trace.WithAttributes(
		attribute.Int64("from_chain", int64(r.FromChain())),
		attribute.Int64("to_chain", int64(r.ToChain())),
		attribute.String("amount", amount.RawString()),
	))
	defer span.End()

	sender := p.cfg.Sender(r)
	var resp createTxResponse
	_, err := p.client.NewRequestWithOptions(
		httpclient.WithEndpoint("create_tx"),
		httpclient.WithResponseErrorHandler(vendor.ErrorHandler(Name, liquidityHints...)),
		vendor.LogHeaders(),
	).
		SetQueryParam("srcChainId", chainID(r.FromChain())).
		SetQueryParam("srcChainTokenIn", vendor.TokenRef(r.From, nativeToken)).
		SetQueryParam("srcChainTokenInAmount", amount.RawString()).
		SetQueryParam("dstChainId", chainID(r.ToChain())).
		SetQueryParam("dstChainTokenOut", vendor.TokenRef(r.To, nativeToken)).
		SetQueryParam("dstChainTokenOutAmount", "auto").
		SetQueryParam("dstChainTokenOutRecipient", r.ToAddress).
		SetQueryParam("senderAddress", sender).
		SetQueryParam("srcChainOrderAuthorityAddress", r.FromAddress).
		SetQueryParam("srcChainRefundAddress", r.FromAddress).
		SetQueryParam("dstChainOrderAuthorityAddress", r.ToAddress).
		SetQueryParam("prependOperatingExpenses", "false").
		SetResult(&resp).
		Get(ctx, createTxEndpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create_tx")
		return domain.ProviderQuote{}, vendor.Wrap(Name, err)
	}

	q, err := normalize(r, amount, resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalize")
		return domain.ProviderQuote{}, err
	}

	p.logger.Debug(ctx, "debridge order quote",
		"order_id", resp.OrderID,
		"to_amount_min", q.DestAmountMin.RawString())
	return q, nil
}

func normalize(r domain.Route, amount asset.Amount, resp createTxResponse) (domain.ProviderQuote, error) {
	if resp.Tx == nil || resp.Tx.To == "" {
		return domain.ProviderQuote{}, vendor.Malformed(Name, "tx")
	}

	// The order's take amount is what the taker must deliver, so it is the floor.
	destMin, err := vendor.ParseAmount(Name, r.To, resp.Estimation.DstChainTokenOut.Amount, "dstChainTokenOut.amount")
	if err != nil {
		return domain.ProviderQuote{}, err
	}
	dest := destMin
	if rec := resp.Estimation.DstChainTokenOut.RecommendedAmount; rec != "" {
		if dest, err = vendor.ParseAmount(Name, r.To, rec, "dstChainTokenOut.recommendedAmount"); err != nil {
			return domain.ProviderQuote{}, err
		}
	}

	from := amount
	if raw := resp.Estimation.SrcChainTokenIn.Amount; raw != "" {
		if from, err = vendor.ParseAmount(Name, r.From, raw, "srcChainTokenIn.amount"); err != nil {
			return domain.ProviderQuote{}, err
		}
	}

	data, err := vendor.DecodeCallData(resp.Tx.Data)
	if err != nil {
		return domain.ProviderQuote{}, vendor.Malformed(Name, "tx.data")
	}
	value, err := vendor.ParseValue(resp.Tx.Value)
	if err != nil {
		return domain.ProviderQuote{}, vendor.Malformed(Name, "tx.value")
	}

	approval := resp.Tx.AllowanceTarget
	if approval == "" {
		approval = resp.Tx.To
	}

	return domain.ProviderQuote{
		FromAmount:    from,
		DestAmount:    dest,
		DestAmountMin: destMin,
		Fees: domain.FeeBreakdown{
			Protocol: vendor.SumFees(r.From, sourceCosts(r.FromChain(), resp.Estimation.CostsDetails)),
		},
		Payload: domain.ExecutionPayload{
			Kind:            domain.PayloadContractCall,
			Target:          resp.Tx.To,
			CallData:        data,
			Value:           value,
			ApprovalAddress: approval,
		},
		RequestID: resp.OrderID,
	}, nil
}

// sourceCosts turns cost lines that consume the input token into fee lines.
func sourceCosts(chain uint64, details []costDetail) []vendor.Fee {
	var out []vendor.Fee
	for _, d := range details {
		in, okIn := new(big.Int).SetString(d.AmountIn, 10)
		outAmt, okOut := new(big.Int).SetString(d.AmountOut, 10)
		if !okIn || !okOut || !strings.EqualFold(d.TokenIn, d.TokenOut) {
			continue
		}
		diff := new(big.Int).Sub(in, outAmt)
		if diff.Sign() <= 0 {
			continue
		}
		out = append(out, vendor.Fee{ChainID: chain, Token: d.TokenIn, Amount: diff.String()})
	}
	return out
}

// Status implements app.Provider. DLN indexes orders by source tx hash.
func (p *Provider) Status(ctx context.Context, req domain.StatusRequest) (domain.ProviderStatus, error) {
	ctx, span := p.tracer.Start(ctx, "debridge.status", trace.WithAttributes(attribute.String("tx_hash", req.TxHash)))
	defer span.End()

	var ids orderIDsResponse
	raw, err := p.client.NewRequestWithOptions(
		httpclient.WithEndpoint("order_ids"),
	).SetResult(&ids).Get(ctx, p.statusURL(fmt.Sprintf(orderIDsPath, url.PathEscape(req.TxHash))))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order ids")
		return domain.ProviderStatus{}, vendor.Wrap(Name, err)
	}
	if raw.StatusCode == http.StatusNotFound {
		return domain.ProviderStatus{State: domain.StatusNotFound}, nil
	}
	if raw.IsError() {
		return domain.ProviderStatus{}, vendor.ErrorHandler(Name)(raw.StatusCode, raw.Body())
	}
	if len(ids.OrderIDs) == 0 {
		return domain.ProviderStatus{State: domain.StatusNotFound}, nil
	}
	orderID := ids.OrderIDs[0].StringValue

	var order orderResponse
	raw, err = p.client.NewRequestWithOptions(
		httpclient.WithEndpoint("order"),
	).SetResult(&order).Get(ctx, p.statusURL(fmt.Sprintf(orderPath, url.PathEscape(orderID))))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order")
		return domain.ProviderStatus{}, vendor.Wrap(Name, err)
	}
	if raw.StatusCode == http.StatusNotFound {
		return domain.ProviderStatus{State: domain.StatusNotFound}, nil
	}
	if raw.IsError() {
		return domain.ProviderStatus{}, vendor.ErrorHandler(Name)(raw.StatusCode, raw.Body())
	}
	return mapOrder(order), nil
}

func (p *Provider) statusURL(path string) string {
	base := p.cfg.StatusURL
	if base == "" {
		base = p.cfg.BaseURL
	}
	return strings.TrimSuffix(base, "/") + path
}

func mapOrder(o orderResponse) domain.ProviderStatus {
	state := o.State
	if state == "" {
		state = o.Status
	}
	out := domain.ProviderStatus{
		Substatus:         state,
		SourceConfirmed:   true,
		DestinationTxHash: o.FulfilledDstEventMetadata.TransactionHash.StringValue,
	}
	switch state {
	case "Fulfilled", "SentUnlock", "ClaimedUnlock":
		out.State = domain.StatusDone
	case "OrderCancelled", "SentOrderCancel", "ClaimedOrderCancel", "Cancelled":
		out.State = domain.StatusFailed
	default:
		out.State = domain.StatusPending
	}
	return out
}
