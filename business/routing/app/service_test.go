package app

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/paybridge/business/routing/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/logger"
)

// recordingCodec stores the last encoded quote.
type recordingCodec struct {
	last domain.Quote
}

func (c *recordingCodec) Encode(q domain.Quote) (string, error) {
	c.last = q
	return "envelope-" + q.RequestID, nil
}

func (c *recordingCodec) Decode(string) (domain.Quote, error) {
	return c.last, nil
}

func newTestQuoteService(t *testing.T, p Provider) (*QuoteService, *recordingCodec) {
	t.Helper()
	codec := &recordingCodec{}
	solver := newTestSolver(t, fixedOracle{rate: decimal.NewFromInt(1)})
	svc := NewQuoteService(asset.DefaultRegistry(), NewRegistry("fake", p), solver, codec, logger.NewNop())
	return svc, codec
}

func validRequest() QuoteRequest {
	return QuoteRequest{
		FromChain:   asset.ChainIDEthereum,
		FromAsset:   "USDT",
		FromAddress: "0x1111111111111111111111111111111111111111",
		ToChain:     asset.ChainIDArbitrum,
		ToAsset:     "0xaf88d065e77c8cc2239327c5edb3a432268e5831",
		ToAddress:   "0x2222222222222222222222222222222222222222",
		ToAmount:    "100",
	}
}

func TestQuoteService_Quote(t *testing.T) {
	p := &feeProvider{haircut: decimal.RequireFromString("0.01")}
	svc, codec := newTestQuoteService(t, p)

	res, err := svc.Quote(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if res.Envelope != "envelope-req-1" {
		t.Errorf("envelope = %q", res.Envelope)
	}
	if res.Quote.ToAmount.RawString() != "100000000" {
		t.Errorf("to amount = %s", res.Quote.ToAmount.RawString())
	}
	if res.Quote.Provider != "fake" || codec.last.Provider != "fake" {
		t.Errorf("provider = %q", res.Quote.Provider)
	}
	if res.Quote.MerchantAddress != "0x2222222222222222222222222222222222222222" {
		t.Errorf("merchant defaults to toAddress, got %q", res.Quote.MerchantAddress)
	}
}

func TestQuoteService_ValidationNeverReachesProvider(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*QuoteRequest)
		want   apperror.Code
	}{
		{"unknown asset", func(r *QuoteRequest) { r.FromAsset = "DOGE" }, apperror.CodeUnknownAsset},
		{"unregistered chain", func(r *QuoteRequest) { r.ToChain = 999 }, apperror.CodeUnknownAsset},
		{"fiat", func(r *QuoteRequest) { r.ToChain = asset.ChainIDFiat; r.ToAsset = "USD" }, apperror.CodeUnsupportedChain},
		{"same asset", func(r *QuoteRequest) {
			r.ToChain, r.ToAsset = asset.ChainIDEthereum, "USDT"
		}, apperror.CodeInvalidRoute},
		{"zero amount", func(r *QuoteRequest) { r.ToAmount = "0" }, apperror.CodeInvalidInput},
		{"negative amount", func(r *QuoteRequest) { r.ToAmount = "-5" }, apperror.CodeInvalidInput},
		{"too precise", func(r *QuoteRequest) { r.ToAmount = "1.0000001" }, apperror.CodeInvalidInput},
		{"missing from address", func(r *QuoteRequest) { r.FromAddress = "" }, apperror.CodeRequiredField},
		{"bad evm address", func(r *QuoteRequest) { r.ToAddress = "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE" }, apperror.CodeInvalidFormat},
		{"bad webhook", func(r *QuoteRequest) { r.MerchantWebhook = "ftp://merchant" }, apperror.CodeInvalidInput},
		{"unknown provider", func(r *QuoteRequest) { r.Provider = "nope" }, apperror.CodeUnknownProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &feeProvider{}
			svc, _ := newTestQuoteService(t, p)
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.Quote(context.Background(), req)
			if !apperror.IsCode(err, tt.want) {
				t.Errorf("err = %v, want %s", err, tt.want)
			}
			if len(p.candidates) != 0 {
				t.Errorf("provider called %d times", len(p.candidates))
			}
		})
	}
}

func TestQuoteService_NativeSourceNeedsDepositRoute(t *testing.T) {
	req := validRequest()
	req.FromAsset = ""

	contract := &feeProvider{}
	svc, _ := newTestQuoteService(t, contract)
	if _, err := svc.Quote(context.Background(), req); !apperror.IsCode(err, apperror.CodeInvalidRoute) {
		t.Errorf("contract call with native source: err = %v", err)
	}

	deposit := &feeProvider{deposit: true}
	svc, _ = newTestQuoteService(t, deposit)
	res, err := svc.Quote(context.Background(), req)
	if err != nil {
		t.Fatalf("deposit route: %v", err)
	}
	if !res.Quote.Payload.IsDeposit() || !res.Quote.Route.From.IsNative() {
		t.Errorf("quote = %+v", res.Quote.Payload)
	}
}

func TestQuoteService_NonEVMSourceNeedsDepositRoute(t *testing.T) {
	req := validRequest()
	req.FromChain = asset.ChainIDTron
	req.FromAsset = "USDT"
	req.FromAddress = "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE"

	svc, _ := newTestQuoteService(t, &feeProvider{})
	if _, err := svc.Quote(context.Background(), req); !apperror.IsCode(err, apperror.CodeInvalidRoute) {
		t.Errorf("err = %v", err)
	}

	svc, _ = newTestQuoteService(t, &feeProvider{deposit: true})
	if _, err := svc.Quote(context.Background(), req); err != nil {
		t.Errorf("deposit route from tron: %v", err)
	}
}

func TestQuoteService_ProviderFailureIsUnreachable(t *testing.T) {
	p := &feeProvider{err: apperror.New(apperror.CodeProviderUnavailable, apperror.WithContext("vendor said: boom"))}
	svc, _ := newTestQuoteService(t, p)

	_, err := svc.Quote(context.Background(), validRequest())
	if !apperror.IsCode(err, apperror.CodeQuoteUnreachable) {
		t.Fatalf("err = %v", err)
	}
}
