package static

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/paybridge/business/pricing/app"
	"github.com/fd1az/paybridge/business/pricing/domain"
)

func TestFeed_USDPrice(t *testing.T) {
	f := New(map[string]decimal.Decimal{"usdc": decimal.NewFromInt(1)})

	p, err := f.USDPrice(context.Background(), "USDC")
	if err != nil {
		t.Fatalf("USDPrice: %v", err)
	}
	if !p.USD.Equal(decimal.NewFromInt(1)) || p.Source != domain.SourceStatic || p.Symbol != "USDC" {
		t.Errorf("got %+v", p)
	}

	if _, err := f.USDPrice(context.Background(), "ETH"); !errors.Is(err, app.ErrUnknownSymbol) {
		t.Errorf("err = %v, want ErrUnknownSymbol", err)
	}
}
