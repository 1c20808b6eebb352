package app

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	chain "github.com/fd1az/paybridge/business/chain/domain"
	routingApp "github.com/fd1az/paybridge/business/routing/app"
	routing "github.com/fd1az/paybridge/business/routing/domain"
	settlement "github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/cache"
	"github.com/fd1az/paybridge/internal/logger"
)

const (
	payer      = "0x1111111111111111111111111111111111111111"
	relayedTx  = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	validToken = "good-token"
)

var (
	issuedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	executor = common.HexToAddress("0x9999999999999999999999999999999999999999")
)

func contractQuote() routing.Quote {
	return routing.Quote{
		RequestID: "req-1",
		Provider:  "lifi",
		Route: routing.Route{
			From:        asset.USDT,
			To:          asset.ArbitrumUSDC,
			FromAddress: payer,
			ToAddress:   "0x2222222222222222222222222222222222222222",
		},
		FromAmount:  asset.NewAmountFromInt64(asset.USDT, 100_900_000),
		ToAmount:    asset.NewAmountFromInt64(asset.ArbitrumUSDC, 100_000_000),
		PlatformFee: asset.NewAmountFromInt64(asset.USDT, 500_000),
		ProviderFee: asset.NewAmountFromInt64(asset.USDT, 120_000),
		Payload: routing.ExecutionPayload{
			Kind:     routing.PayloadContractCall,
			Target:   "0x3333333333333333333333333333333333333333",
			CallData: []byte{0xde, 0xad},
			Value:    big.NewInt(0),
		},
		MerchantAddress: "0x2222222222222222222222222222222222222222",
		IssuedAt:        issuedAt,
		Expiry:          issuedAt.Add(21 * time.Second),
	}
}

func depositQuote() routing.Quote {
	q := contractQuote()
	q.Route.From = asset.TronTRX
	q.Route.FromAddress = "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE"
	q.FromAmount = asset.NewAmountFromInt64(asset.TronTRX, 400_000_000)
	q.PlatformFee = asset.NewAmountFromInt64(asset.TronTRX, 2_000_000)
	q.ProviderFee = asset.Zero(asset.TronTRX)
	q.Provider = "intents"
	q.Payload = routing.ExecutionPayload{
		Kind:           routing.PayloadDepositAddress,
		DepositAddress: "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf",
	}
	return q
}

type fakeAuth struct{}

func (fakeAuth) Verify(token string) (string, error) {
	if token != validToken {
		return "", apperror.New(apperror.CodeUnauthorized)
	}
	return "merchant-1", nil
}

type fakeDecoder struct {
	q   routing.Quote
	err error
}

func (d fakeDecoder) Decode(string) (routing.Quote, error) { return d.q, d.err }

type fakeProviders struct{}

func (fakeProviders) Get(name string) (routingApp.Provider, error) {
	if name == "unknown" {
		return nil, apperror.New(apperror.CodeUnknownProvider, apperror.WithContext(name))
	}
	return nil, nil
}

// fakeChain records every call in order.
type fakeChain struct {
	mu         sync.Mutex
	chains     map[uint64]bool
	balance    *big.Int
	allowance  *big.Int
	relayErr   error
	calls      []string
	relays     []chain.RelayRequest
	noExecutor bool
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		chains:    map[uint64]bool{asset.ChainIDEthereum: true},
		balance:   big.NewInt(1_000_000_000),
		allowance: big.NewInt(1_000_000_000),
	}
}

func (c *fakeChain) record(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *fakeChain) Supports(chainID uint64) bool { return c.chains[chainID] }

func (c *fakeChain) BalanceOf(context.Context, uint64, common.Address, common.Address) (*big.Int, error) {
	c.record("balance")
	return c.balance, nil
}

func (c *fakeChain) Allowance(context.Context, uint64, common.Address, common.Address, common.Address) (*big.Int, error) {
	c.record("allowance")
	return c.allowance, nil
}

func (c *fakeChain) Spender(uint64) (common.Address, bool) {
	return executor, !c.noExecutor
}

func (c *fakeChain) Relay(_ context.Context, req chain.RelayRequest) (common.Hash, error) {
	c.record("relay")
	c.mu.Lock()
	c.relays = append(c.relays, req)
	c.mu.Unlock()
	if c.relayErr != nil {
		return common.Hash{}, c.relayErr
	}
	return common.HexToHash(relayedTx), nil
}

func (c *fakeChain) relayCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.relays)
}

type fakeLedger struct {
	mu     sync.Mutex
	events []settlement.Event
	err    error
}

func (l *fakeLedger) Open(_ context.Context, e settlement.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return l.err
}

type harness struct {
	svc    *Service
	chain  *fakeChain
	ledger *fakeLedger
}

func newHarness(t *testing.T, q routing.Quote, now time.Time) *harness {
	t.Helper()
	claims := cache.New[string, string](time.Minute)
	t.Cleanup(claims.Close)

	h := &harness{chain: newFakeChain(), ledger: &fakeLedger{}}
	svc, err := NewService(fakeAuth{}, fakeDecoder{q: q}, fakeProviders{}, h.chain, h.ledger, claims, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return now }
	svc.newID = func() string { return "evt-1" }
	h.svc = svc
	return h
}

func TestExecute_RelaysAndOpensSettlement(t *testing.T) {
	h := newHarness(t, contractQuote(), issuedAt.Add(5*time.Second))

	res, err := h.svc.Execute(context.Background(), ExecuteRequest{Envelope: "env", AuthToken: validToken})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.TxHash != common.HexToHash(relayedTx).Hex() || res.EventID != "evt-1" || res.Deposit {
		t.Errorf("result = %+v", res)
	}
	if got := strings.Join(h.chain.calls, ","); got != "balance,allowance,relay" {
		t.Errorf("calls = %s", got)
	}

	req := h.chain.relays[0]
	if req.Payer != common.HexToAddress(payer) || req.Amount.Int64() != 100_900_000 {
		t.Errorf("relay request = %+v", req)
	}
	if req.Token != common.HexToAddress(asset.USDT.Address()) || len(req.Call.Data) != 2 {
		t.Errorf("relay token/call = %s %x", req.Token.Hex(), req.Call.Data)
	}

	if len(h.ledger.events) != 1 {
		t.Fatalf("ledger events = %d", len(h.ledger.events))
	}
	e := h.ledger.events[0]
	if e.TxHash != res.TxHash || e.ID != "evt-1" || e.FromChain != asset.ChainIDEthereum || e.ToChain != asset.ChainIDArbitrum {
		t.Errorf("event = %+v", e)
	}
}

func TestExecute_ExpiredQuoteIsRejectedBeforeAnyChainCall(t *testing.T) {
	// Presented 30 seconds after a 21-second expiry.
	h := newHarness(t, contractQuote(), issuedAt.Add(21*time.Second).Add(30*time.Second))

	_, err := h.svc.Execute(context.Background(), ExecuteRequest{Envelope: "env", AuthToken: validToken})
	if !apperror.IsCode(err, apperror.CodeQuoteExpired) {
		t.Fatalf("err = %v, want QuoteExpired", err)
	}
	if h.chain.relayCount() != 0 || len(h.chain.calls) != 0 {
		t.Errorf("chain calls = %v", h.chain.calls)
	}
	if len(h.ledger.events) != 0 {
		t.Error("expired quote opened settlement")
	}
}

func TestExecute_ExpiryBoundaryIsInclusive(t *testing.T) {
	h := newHarness(t, contractQuote(), issuedAt.Add(21*time.Second))
	if _, err := h.svc.Execute(context.Background(), ExecuteRequest{Envelope: "env", AuthToken: validToken}); err != nil {
		t.Errorf("execute at exactly expiry: %v", err)
	}
}

func TestExecute_ZeroAllowanceNeverReachesRelayer(t *testing.T) {
	h := newHarness(t, contractQuote(), issuedAt.Add(time.Second))
	h.chain.allowance = big.NewInt(0)

	_, err := h.svc.Execute(context.Background(), ExecuteRequest{Envelope: "env", AuthToken: validToken})
	if !apperror.IsCode(err, apperror.CodeInsufficientAllowance) {
		t.Fatalf("err = %v, want InsufficientAllowance", err)
	}
	if n := h.chain.relayCount(); n != 0 {
		t.Errorf("relayer called %d times", n)
	}
}

func TestExecute_PreconditionOrder(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		now       time.Time
		balance   int64
		allowance int64
		want      apperror.Code
		wantCalls string
	}{
		{
			name:  "auth before expiry",
			token: "bad", now: issuedAt.Add(time.Hour), balance: 0, allowance: 0,
			want: apperror.CodeUnauthorized,
		},
		{
			name:  "expiry before balance",
			token: validToken, now: issuedAt.Add(time.Hour), balance: 0, allowance: 0,
			want: apperror.CodeQuoteExpired,
		},
		{
			name:  "balance before allowance",
			token: validToken, now: issuedAt, balance: 1, allowance: 0,
			want: apperror.CodeInsufficientBalance, wantCalls: "balance",
		},
		{
			name:  "allowance last",
			token: validToken, now: issuedAt, balance: 1_000_000_000, allowance: 100_899_999,
			want: apperror.CodeInsufficientAllowance, wantCalls: "balance,allowance",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, contractQuote(), tt.now)
			h.chain.balance = big.NewInt(tt.balance)
			h.chain.allowance = big.NewInt(tt.allowance)

			_, err := h.svc.Execute(context.Background(), ExecuteRequest{Envelope: "env", AuthToken: tt.token})
			if !apperror.IsCode(err, tt.want) {
				t.Fatalf("err = %v, want %s", err, tt.want)
			}
			if got := strings.Join(h.chain.calls, ","); got != tt.wantCalls {
				t.Errorf("calls = %q, want %q", got, tt.wantCalls)
			}
		})
	}
}

func TestExecute_EnvelopeIsSingleUse(t *testing.T) {
	h := newHarness(t, contractQuote(), issuedAt.Add(time.Second))
	ctx := context.Background()
	req := ExecuteRequest{Envelope: "env", AuthToken: validToken}

	if _, err := h.svc.Execute(ctx, req); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.Execute(ctx, req); !apperror.IsCode(err, apperror.CodeEnvelopeUsed) {
		t.Fatalf("second execute err = %v, want EnvelopeUsed", err)
	}
	if h.chain.relayCount() != 1 {
		t.Errorf("relays = %d, want 1", h.chain.relayCount())
	}
}

func TestExecute_RelayFailureReleasesEnvelope(t *testing.T) {
	h := newHarness(t, contractQuote(), issuedAt.Add(time.Second))
	h.chain.relayErr = errors.New("nonce too low")
	ctx := context.Background()
	req := ExecuteRequest{Envelope: "env", AuthToken: validToken}

	if _, err := h.svc.Execute(ctx, req); !apperror.IsCode(err, apperror.CodeRelayFailed) {
		t.Fatalf("err = %v, want RelayFailed", err)
	}
	h.chain.relayErr = nil
	if _, err := h.svc.Execute(ctx, req); err != nil {
		t.Fatalf("retry after failed relay: %v", err)
	}
}

func TestExecute_ExpiryIsCheckedBeforeProvider(t *testing.T) {
	q := contractQuote()
	q.Provider = "unknown"
	h := newHarness(t, q, issuedAt.Add(21*time.Second).Add(30*time.Second))

	_, err := h.svc.Execute(context.Background(), ExecuteRequest{Envelope: "env", AuthToken: validToken})
	if !apperror.IsCode(err, apperror.CodeQuoteExpired) {
		t.Fatalf("err = %v, want QuoteExpired for an expired quote of an unknown provider", err)
	}
}

func TestExecute_LedgerFailureStillReturnsHash(t *testing.T) {
	h := newHarness(t, contractQuote(), issuedAt.Add(time.Second))
	h.ledger.err = apperror.New(apperror.CodePublishFailed)

	res, err := h.svc.Execute(context.Background(), ExecuteRequest{Envelope: "env", AuthToken: validToken})
	if err != nil {
		t.Fatalf("err = %v, the relayed hash must still be returned", err)
	}
	if res.TxHash == "" {
		t.Error("empty hash")
	}
}

func TestExecute_RouteErrors(t *testing.T) {
	native := contractQuote()
	native.Route.From = asset.ETH
	native.FromAmount = asset.NewAmountFromInt64(asset.ETH, 1)

	unknown := contractQuote()
	unknown.Provider = "unknown"

	unreadable := contractQuote()
	unreadable.Route.From = asset.PolygonUSDC
	unreadable.FromAmount = asset.NewAmountFromInt64(asset.PolygonUSDC, 1)

	tests := []struct {
		name string
		q    routing.Quote
		set  func(*fakeChain)
		want apperror.Code
	}{
		{name: "native source", q: native, want: apperror.CodeInvalidRoute},
		{name: "unknown provider", q: unknown, want: apperror.CodeUnknownProvider},
		{name: "unsupported chain", q: unreadable, want: apperror.CodeUnsupportedChain},
		{name: "no executor", q: contractQuote(), set: func(c *fakeChain) { c.noExecutor = true }, want: apperror.CodeRelayerNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.q, issuedAt)
			if tt.set != nil {
				tt.set(h.chain)
			}
			_, err := h.svc.Execute(context.Background(), ExecuteRequest{Envelope: "env", AuthToken: validToken})
			if !apperror.IsCode(err, tt.want) {
				t.Fatalf("err = %v, want %s", err, tt.want)
			}
			if h.chain.relayCount() != 0 {
				t.Error("relayer called")
			}
		})
	}
}

func TestExecute_MalformedEnvelope(t *testing.T) {
	claims := cache.New[string, string](time.Minute)
	t.Cleanup(claims.Close)
	ch := newFakeChain()
	svc, err := NewService(fakeAuth{}, fakeDecoder{err: apperror.New(apperror.CodeEnvelopeMalformed)},
		fakeProviders{}, ch, &fakeLedger{}, claims, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Execute(context.Background(), ExecuteRequest{Envelope: "x", AuthToken: validToken}); !apperror.IsCode(err, apperror.CodeEnvelopeMalformed) {
		t.Errorf("err = %v, want EnvelopeMalformed", err)
	}
}

func TestExecute_DepositRoute(t *testing.T) {
	t.Run("keyed by deposit tx hash, no relay", func(t *testing.T) {
		h := newHarness(t, depositQuote(), issuedAt.Add(time.Second))
		h.chain.allowance = big.NewInt(0)

		res, err := h.svc.Execute(context.Background(), ExecuteRequest{
			Envelope: "env", AuthToken: validToken, DepositTxHash: "tron-tx-1",
		})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if !res.Deposit || res.TxHash != "tron-tx-1" {
			t.Errorf("result = %+v", res)
		}
		if len(h.chain.calls) != 0 {
			t.Errorf("chain calls = %v", h.chain.calls)
		}
		e := h.ledger.events[0]
		if e.TxHash != "tron-tx-1" || e.DepositAddress != depositQuote().Payload.DepositAddress {
			t.Errorf("event = %+v", e)
		}
	})

	t.Run("keyed by deposit address", func(t *testing.T) {
		h := newHarness(t, depositQuote(), issuedAt.Add(time.Second))
		res, err := h.svc.Execute(context.Background(), ExecuteRequest{Envelope: "env", AuthToken: validToken})
		if err != nil {
			t.Fatal(err)
		}
		if res.TxHash != depositQuote().Payload.DepositAddress {
			t.Errorf("tx hash = %q", res.TxHash)
		}
	})

	t.Run("readable chain checks balance but never allowance", func(t *testing.T) {
		q := contractQuote()
		q.Payload = routing.ExecutionPayload{Kind: routing.PayloadDepositAddress, DepositAddress: "0x5555555555555555555555555555555555555555"}
		h := newHarness(t, q, issuedAt.Add(time.Second))
		h.chain.allowance = big.NewInt(0)

		if _, err := h.svc.Execute(context.Background(), ExecuteRequest{Envelope: "env", AuthToken: validToken}); err != nil {
			t.Fatal(err)
		}
		if got := strings.Join(h.chain.calls, ","); got != "balance" {
			t.Errorf("calls = %q, want balance only", got)
		}
	})

	t.Run("ledger failure is returned", func(t *testing.T) {
		h := newHarness(t, depositQuote(), issuedAt.Add(time.Second))
		h.ledger.err = apperror.New(apperror.CodeStoreError)
		if _, err := h.svc.Execute(context.Background(), ExecuteRequest{Envelope: "env", AuthToken: validToken}); !apperror.IsCode(err, apperror.CodeStoreError) {
			t.Errorf("err = %v, want StoreError", err)
		}
	})
}
