package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fd1az/paybridge/business/pricing/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/cache"
	"github.com/fd1az/paybridge/internal/logger"
)

// OracleConfig holds cache and freshness settings.
type OracleConfig struct {
	CacheTTL time.Duration
	MaxAge   time.Duration
}

// Oracle answers price(assetA, assetB) by crossing USD prices from its feeds.
// Feeds are tried in order; the first fresh answer wins.
type Oracle struct {
	feeds  []PriceFeed
	cache  *cache.Cache[string, domain.USDPrice]
	cfg    OracleConfig
	logger logger.LoggerInterface
	now    func() time.Time
}

// NewOracle creates an Oracle over feeds.
func NewOracle(cfg OracleConfig, log logger.LoggerInterface, feeds ...PriceFeed) *Oracle {
	return &Oracle{
		feeds:  feeds,
		cache:  cache.New[string, domain.USDPrice](time.Minute),
		cfg:    cfg,
		logger: log,
		now:    time.Now,
	}
}

// Price returns the rate of base in quote units. The fixed-point rate is
// rounded in direction r so a conversion with the same r never favours the payer.
func (o *Oracle) Price(ctx context.Context, base, quote *asset.Asset, r asset.Rounding) (asset.Price, error) {
	if base.PriceSymbol() == quote.PriceSymbol() {
		return asset.NewPrice(base, quote, decimalOne, o.now()), nil
	}

	bp, err := o.usd(ctx, base.PriceSymbol())
	if err != nil {
		return asset.Price{}, err
	}
	qp, err := o.usd(ctx, quote.PriceSymbol())
	if err != nil {
		return asset.Price{}, err
	}

	observed := bp.ObservedAt
	if qp.ObservedAt.Before(observed) {
		observed = qp.ObservedAt
	}

	price, err := asset.NewPriceFromRatio(base, quote, bp.USD, qp.USD, r, observed)
	if err != nil {
		return asset.Price{}, apperror.New(apperror.CodePriceUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(base.PriceSymbol()+"/"+quote.PriceSymbol()))
	}
	return price, nil
}

// Convert expresses amount in units of to, rounding in direction r.
func (o *Oracle) Convert(ctx context.Context, amount asset.Amount, to *asset.Asset, r asset.Rounding) (asset.Amount, error) {
	price, err := o.Price(ctx, amount.Asset(), to, r)
	if err != nil {
		return asset.Amount{}, err
	}
	return price.Convert(amount, r)
}

func (o *Oracle) usd(ctx context.Context, symbol string) (domain.USDPrice, error) {
	symbol = strings.ToUpper(symbol)
	if p, ok := o.cache.Get(ctx, symbol); ok {
		return p, nil
	}

	var errs []error
	for _, feed := range o.feeds {
		p, err := feed.USDPrice(ctx, symbol)
		if err != nil {
			if !errors.Is(err, ErrUnknownSymbol) {
				o.logger.Debug(ctx, "price feed failed", "feed", feed.Name(), "symbol", symbol, "error", err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", feed.Name(), err))
			continue
		}
		if p.IsStale(o.now(), o.cfg.MaxAge) {
			errs = append(errs, fmt.Errorf("%s: stale price from %s", feed.Name(), p.ObservedAt.Format(time.RFC3339)))
			continue
		}
		if !p.USD.IsPositive() {
			errs = append(errs, fmt.Errorf("%s: non-positive price", feed.Name()))
			continue
		}
		if o.cfg.CacheTTL > 0 {
			o.cache.Set(ctx, symbol, p, o.cfg.CacheTTL)
		}
		return p, nil
	}

	return domain.USDPrice{}, apperror.New(apperror.CodePriceUnavailable,
		apperror.WithCause(errors.Join(errs...)),
		apperror.WithContext(symbol))
}

// Close releases the cache sweeper.
func (o *Oracle) Close() {
	o.cache.Close()
}
