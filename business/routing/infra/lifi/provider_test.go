package lifi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fd1az/paybridge/business/routing/domain"
	"github.com/fd1az/paybridge/business/routing/infra/vendor"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/logger"
)

const quoteBody = `{
  "id": "lifi-req-1",
  "type": "lifi",
  "tool": "stargate",
  "estimate": {
    "fromAmount": "101000000",
    "toAmount": "100300000",
    "toAmountMin": "100050000",
    "approvalAddress": "0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE",
    "feeCosts": [
      {"name": "LIFI Fixed Fee", "amount": "252500", "included": true,
       "token": {"address": "0xdAC17F958D2ee523a2206206994597C13D831ec7", "chainId": 1}}
    ],
    "gasCosts": [
      {"type": "SEND", "amount": "2100000000000000",
       "token": {"address": "0x0000000000000000000000000000000000000000", "chainId": 1}}
    ]
  },
  "transactionRequest": {
    "to": "0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE",
    "data": "0xdeadbeef",
    "value": "0x0",
    "chainId": 1
  }
}`

func testRoute() domain.Route {
	return domain.Route{
		From:        asset.USDT,
		To:          asset.ArbitrumUSDC,
		FromAddress: "0x1111111111111111111111111111111111111111",
		ToAddress:   "0x2222222222222222222222222222222222222222",
	}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := New(vendor.Config{
		BaseURL:     srv.URL,
		APIKey:      "key",
		Integrator:  "paybridge",
		SlippageBps: 50,
		Executors:   map[uint64]string{1: "0x9999999999999999999999999999999999999999"},
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestProvider_QuoteNormalizes(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != quoteEndpoint {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		want := map[string]string{
			"fromChain":   "1",
			"toChain":     "42161",
			"fromToken":   asset.USDT.Address(),
			"toToken":     asset.ArbitrumUSDC.Address(),
			"fromAmount":  "101000000",
			"fromAddress": "0x9999999999999999999999999999999999999999",
			"toAddress":   "0x2222222222222222222222222222222222222222",
			"integrator":  "paybridge",
			"slippage":    "0.005",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("%s = %q, want %q", k, q.Get(k), v)
			}
		}
		if r.Header.Get("x-lifi-api-key") != "key" {
			t.Errorf("api key header missing")
		}
		_, _ = w.Write([]byte(quoteBody))
	})

	q, err := p.Quote(context.Background(), testRoute(), asset.NewAmountFromInt64(asset.USDT, 101_000_000))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	if q.DestAmountMin.RawString() != "100050000" || q.DestAmount.RawString() != "100300000" {
		t.Errorf("dest = %s / %s", q.DestAmount.RawString(), q.DestAmountMin.RawString())
	}
	if !q.DestAmountMin.Asset().Equals(asset.ArbitrumUSDC) {
		t.Errorf("dest asset = %s", q.DestAmountMin.Asset())
	}
	if got := q.Fees.Total(asset.USDT).RawString(); got != "252500" {
		t.Errorf("fees = %s, want only the USDT fee line", got)
	}
	if q.Payload.Kind != domain.PayloadContractCall || len(q.Payload.CallData) != 4 {
		t.Errorf("payload = %+v", q.Payload)
	}
	if q.Payload.Value.Sign() != 0 {
		t.Errorf("value = %s", q.Payload.Value)
	}
	if q.RequestID != "lifi-req-1" {
		t.Errorf("request id = %q", q.RequestID)
	}
}

func TestProvider_QuoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   apperror.Code
	}{
		{"no route", http.StatusNotFound, `{"message":"No available quotes for the requested transfer"}`, apperror.CodeInsufficientLiquidity},
		{"bad token", http.StatusBadRequest, `{"message":"Invalid toToken"}`, apperror.CodeInvalidRoute},
		{"vendor down", http.StatusBadGateway, `upstream`, apperror.CodeProviderUnavailable},
		{"missing transaction", http.StatusOK, `{"estimate":{"toAmount":"1","toAmountMin":"1"}}`, apperror.CodeProviderUnavailable},
		{"garbage", http.StatusOK, `<html>`, apperror.CodeProviderUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := p.Quote(context.Background(), testRoute(), asset.NewAmountFromInt64(asset.USDT, 1))
			if !apperror.IsCode(err, tt.want) {
				t.Errorf("err = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestProvider_Status(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     domain.StatusState
		destHash string
	}{
		{"done", 200, `{"status":"DONE","substatus":"COMPLETED","sending":{"txHash":"0xa"},"receiving":{"txHash":"0xb"}}`, domain.StatusDone, "0xb"},
		{"refunded", 200, `{"status":"DONE","substatus":"REFUNDED","sending":{"txHash":"0xa"}}`, domain.StatusFailed, ""},
		{"pending", 200, `{"status":"PENDING","sending":{"txHash":"0xa"}}`, domain.StatusPending, ""},
		{"failed", 200, `{"status":"FAILED"}`, domain.StatusFailed, ""},
		{"unknown", 404, `{"message":"not found"}`, domain.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("txHash") != "0xa" {
					t.Errorf("txHash = %q", r.URL.Query().Get("txHash"))
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			st, err := p.Status(context.Background(), domain.StatusRequest{TxHash: "0xa", FromChain: 1, ToChain: 42161})
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			if st.State != tt.want || st.DestinationTxHash != tt.destHash {
				t.Errorf("status = %+v", st)
			}
		})
	}
}
