package asset_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/paybridge/internal/asset"
)

func TestAmount_Basic(t *testing.T) {
	oneETH := asset.NewAmount(asset.ETH, big.NewInt(1e18))

	if oneETH.IsZero() {
		t.Error("expected non-zero amount")
	}
	if !oneETH.ToDecimal().Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", oneETH.ToDecimal())
	}
	if oneETH.String() != "1 ETH" {
		t.Errorf("expected '1 ETH', got '%s'", oneETH.String())
	}
	if oneETH.RawString() != "1000000000000000000" {
		t.Errorf("RawString = %s", oneETH.RawString())
	}
}

func TestAmount_AddSub(t *testing.T) {
	a := asset.NewAmountFromInt64(asset.USDC, 3_000_000)
	b := asset.NewAmountFromInt64(asset.USDC, 1_000_000)

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Formatted() != "4" {
		t.Errorf("sum = %s", sum.Formatted())
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if diff.Formatted() != "2" {
		t.Errorf("diff = %s", diff.Formatted())
	}

	if _, err := b.Sub(a); !errors.Is(err, asset.ErrNegativeResult) {
		t.Errorf("expected ErrNegativeResult, got %v", err)
	}
}

func TestAmount_CannotMixAssets(t *testing.T) {
	usdcEth := asset.NewAmountFromInt64(asset.USDC, 1)
	usdcArb := asset.NewAmountFromInt64(asset.ArbitrumUSDC, 1)

	if _, err := usdcEth.Add(usdcArb); !errors.Is(err, asset.ErrAssetMismatch) {
		t.Errorf("same symbol on another chain must not mix, got %v", err)
	}
	if _, err := usdcEth.Cmp(usdcArb); err == nil {
		t.Error("expected comparison error")
	}
}

func TestAmount_MulDecimal(t *testing.T) {
	tests := []struct {
		name   string
		raw    int64
		factor string
		r      asset.Rounding
		want   string
	}{
		{"exact", 1000, "1.1", asset.RoundUp, "1100"},
		{"ceil fraction", 1001, "1.1", asset.RoundUp, "1102"},
		{"floor fraction", 1001, "1.1", asset.RoundDown, "1101"},
		{"percent up", 100_000_000, "0.005", asset.RoundUp, "500000"},
		{"tiny up", 1, "0.005", asset.RoundUp, "1"},
		{"tiny down", 1, "0.005", asset.RoundDown, "0"},
		{"integer factor", 7, "3", asset.RoundDown, "21"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := asset.NewAmountFromInt64(asset.USDT, tt.raw)
			got := a.MulDecimal(decimal.RequireFromString(tt.factor), tt.r)
			if got.RawString() != tt.want {
				t.Errorf("MulDecimal = %s, want %s", got.RawString(), tt.want)
			}
		})
	}
}

func TestParseRaw(t *testing.T) {
	huge := "123456789012345678901234567890"
	a, err := asset.ParseRaw(asset.ETH, huge)
	if err != nil {
		t.Fatalf("ParseRaw: %v", err)
	}
	if a.RawString() != huge {
		t.Errorf("lost precision: %s", a.RawString())
	}

	for _, bad := range []string{"", "1.5", "-1", "1e18", "abc"} {
		if _, err := asset.ParseRaw(asset.ETH, bad); err == nil {
			t.Errorf("ParseRaw(%q) should fail", bad)
		}
	}
}

func TestParseString(t *testing.T) {
	amount, err := asset.ParseString(asset.ETH, "1.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amount.RawString() != "1500000000000000000" {
		t.Errorf("got %s", amount.RawString())
	}

	if _, err := asset.ParseString(asset.USDC, "1.1234567"); !errors.Is(err, asset.ErrTooManyDecimals) {
		t.Errorf("expected ErrTooManyDecimals, got %v", err)
	}
}

func TestPrice_ConvertRounding(t *testing.T) {
	now := time.Now()

	// 1 USDT = 0.999 USDC
	price := asset.NewPrice(asset.USDT, asset.ArbitrumUSDC, decimal.RequireFromString("0.999"), now)

	one := asset.NewAmountFromInt64(asset.USDT, 1)
	up, err := price.Convert(one, asset.RoundUp)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	down, _ := price.Convert(one, asset.RoundDown)
	if up.RawString() != "1" || down.RawString() != "0" {
		t.Errorf("1 unit: up=%s down=%s, want 1/0", up.RawString(), down.RawString())
	}

	hundred := asset.NewAmountFromInt64(asset.USDT, 100_000_000)
	got, _ := price.Convert(hundred, asset.RoundDown)
	if got.RawString() != "99900000" {
		t.Errorf("100 USDT -> %s, want 99900000", got.RawString())
	}
}

func TestPrice_ConvertAcrossDecimals(t *testing.T) {
	now := time.Now()

	// ETH/USDC = 2000
	price := asset.NewPrice(asset.ETH, asset.USDC, decimal.NewFromInt(2000), now)
	usdc, err := price.Convert(asset.NewAmount(asset.ETH, big.NewInt(1e18)), asset.RoundDown)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !usdc.ToDecimal().Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected 2000 USDC, got %s", usdc.ToDecimal())
	}

	// USDC -> ETH at 1/2000: 1 micro-USDC is 5e8 wei exactly
	inv, err := asset.NewPriceFromRatio(asset.USDC, asset.ETH, decimal.NewFromInt(1), decimal.NewFromInt(2000), asset.RoundUp, now)
	if err != nil {
		t.Fatalf("NewPriceFromRatio: %v", err)
	}
	wei, _ := inv.Convert(asset.NewAmountFromInt64(asset.USDC, 1), asset.RoundUp)
	if wei.RawString() != "500000000" {
		t.Errorf("got %s wei", wei.RawString())
	}

	if _, err := price.Convert(asset.NewAmountFromInt64(asset.USDT, 1), asset.RoundDown); !errors.Is(err, asset.ErrAssetMismatch) {
		t.Errorf("expected mismatch, got %v", err)
	}
}

func TestNewPriceFromRatio_Rounding(t *testing.T) {
	now := time.Now()
	up, _ := asset.NewPriceFromRatio(asset.USDT, asset.USDC, decimal.NewFromInt(1), decimal.NewFromInt(3), asset.RoundUp, now)
	down, _ := asset.NewPriceFromRatio(asset.USDT, asset.USDC, decimal.NewFromInt(1), decimal.NewFromInt(3), asset.RoundDown, now)

	if up.Rate().String() != "0.333333333333333334" {
		t.Errorf("up = %s", up.Rate())
	}
	if down.Rate().String() != "0.333333333333333333" {
		t.Errorf("down = %s", down.Rate())
	}

	if _, err := asset.NewPriceFromRatio(asset.USDT, asset.USDC, decimal.Zero, decimal.NewFromInt(1), asset.RoundUp, now); !errors.Is(err, asset.ErrZeroPrice) {
		t.Errorf("expected ErrZeroPrice, got %v", err)
	}
}

func TestAssetID_Normalization(t *testing.T) {
	lower := asset.MustTokenAssetID(asset.ChainIDEthereum, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	if !lower.Equals(asset.IDEthereumUSDC) {
		t.Error("EVM addresses must compare case-insensitively")
	}

	if !asset.MustTokenAssetID(asset.ChainIDBase, "0x0000000000000000000000000000000000000000").IsNative() {
		t.Error("zero address maps to the native coin")
	}

	if asset.IDEthereumUSDC.Equals(asset.MustTokenAssetID(asset.ChainIDPolygon, asset.IDEthereumUSDC.Address())) {
		t.Error("different chains should have different IDs")
	}

	if _, err := asset.NewTokenAssetID(asset.ChainIDEthereum, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"); !errors.Is(err, asset.ErrInvalidAddress) {
		t.Errorf("tron address on an EVM chain must fail, got %v", err)
	}
	if _, err := asset.NewTokenAssetID(asset.ChainIDTron, "0xdAC17F958D2ee523a2206206994597C13D831ec7"); !errors.Is(err, asset.ErrInvalidAddress) {
		t.Errorf("hex address on tron must fail, got %v", err)
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := asset.DefaultRegistry()

	tests := []struct {
		name    string
		chainID uint64
		ref     string
		want    asset.AssetID
		wantErr bool
	}{
		{"native by empty ref", asset.ChainIDEthereum, "", asset.IDEthereumETH, false},
		{"native by zero address", asset.ChainIDArbitrum, "0x0000000000000000000000000000000000000000", asset.IDArbitrumETH, false},
		{"token by address", asset.ChainIDArbitrum, "0xaf88d065e77c8cc2239327c5edb3a432268e5831", asset.IDArbitrumUSDC, false},
		{"token by symbol", asset.ChainIDPolygon, "usdt", asset.IDPolygonUSDT, false},
		{"tron token by address", asset.ChainIDTron, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", asset.IDTronUSDT, false},
		{"unknown token", asset.ChainIDBase, "USDT", asset.AssetID{}, true},
		{"unknown chain", 999, "", asset.AssetID{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Lookup(tt.chainID, tt.ref)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			if !got.ID().Equals(tt.want) {
				t.Errorf("got %s, want %s", got.ID(), tt.want)
			}
		})
	}
}

func TestRegistry_RegisterOverrides(t *testing.T) {
	r := asset.DefaultRegistry()
	before := r.Count()

	custom := asset.NewAssetWithName(asset.IDBSCUSDT, "USDT", "Binance-Peg USDT", 18).WithPriceSymbol("USD")
	r.Register(custom)

	if r.Count() != before {
		t.Errorf("override changed count: %d -> %d", before, r.Count())
	}
	got, ok := r.GetBySymbolAndChain("USDT", asset.ChainIDBSC)
	if !ok || got.PriceSymbol() != "USD" {
		t.Errorf("override not visible by symbol: %+v", got)
	}
	if syms := r.PriceSymbols(); len(syms) == 0 {
		t.Error("expected price symbols")
	}
}
