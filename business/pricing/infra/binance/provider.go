package binance

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/paybridge/business/pricing/app"
	"github.com/fd1az/paybridge/business/pricing/domain"
	"github.com/fd1az/paybridge/internal/logger"
)

var _ app.PriceFeed = (*Provider)(nil)

// ProviderConfig holds configuration for the Binance feed.
type ProviderConfig struct {
	HTTPURL      string
	WebSocketURL string
	// QuoteSymbol is the USD-pegged quote asset, e.g. USDT.
	QuoteSymbol string
	// Symbols are price symbols to stream, e.g. ETH, BTC.
	Symbols      []string
	Stream       bool
	StaleTimeout time.Duration
	Timeout      time.Duration
}

// Provider prices symbols from the ticker stream when fresh and falls back to REST.
type Provider struct {
	config     ProviderConfig
	logger     logger.LoggerInterface
	stream     *StreamClient
	httpClient *HTTPClient
	fallbacks  metric.Int64Counter
	now        func() time.Time
}

// NewProvider creates the Binance feed.
func NewProvider(cfg ProviderConfig, log logger.LoggerInterface) (*Provider, error) {
	if cfg.QuoteSymbol == "" {
		cfg.QuoteSymbol = "USDT"
	}
	if cfg.StaleTimeout == 0 {
		cfg.StaleTimeout = 30 * time.Second
	}

	httpClient, err := NewHTTPClient(HTTPClientConfig{BaseURL: cfg.HTTPURL, Timeout: cfg.Timeout}, log)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		config:     cfg,
		logger:     log,
		httpClient: httpClient,
		now:        time.Now,
	}

	if cfg.Stream {
		pairs := make([]string, 0, len(cfg.Symbols))
		for _, s := range cfg.Symbols {
			if pair, ok := p.pair(s); ok {
				pairs = append(pairs, pair)
			}
		}
		stream, err := NewStreamClient(StreamConfig{
			BaseURL:     cfg.WebSocketURL,
			Pairs:       pairs,
			ReadTimeout: 2 * time.Minute,
		}, log)
		if err != nil {
			return nil, err
		}
		p.stream = stream
	}

	p.fallbacks, err = otel.Meter(meterName).Int64Counter("binance_rest_fallbacks_total",
		metric.WithDescription("Prices served from REST because the stream was stale or absent"))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Name identifies the feed.
func (p *Provider) Name() string { return "binance" }

// Connect starts the stream when enabled.
func (p *Provider) Connect(ctx context.Context) error {
	if p.stream == nil {
		return nil
	}
	return p.stream.Connect(ctx)
}

// Close stops the stream.
func (p *Provider) Close() error {
	if p.stream == nil {
		return nil
	}
	return p.stream.Close()
}

func (p *Provider) pair(symbol string) (string, bool) {
	symbol = strings.ToUpper(symbol)
	if symbol == "USD" || symbol == strings.ToUpper(p.config.QuoteSymbol) {
		return "", false
	}
	return symbol + strings.ToUpper(p.config.QuoteSymbol), true
}

// USDPrice returns the symbol's price in the USD-pegged quote asset.
func (p *Provider) USDPrice(ctx context.Context, symbol string) (domain.USDPrice, error) {
	pair, ok := p.pair(symbol)
	if !ok {
		return domain.USDPrice{}, app.ErrUnknownSymbol
	}

	if p.stream != nil {
		if price, at, ok := p.stream.Latest(pair); ok && p.now().Sub(at) <= p.config.StaleTimeout {
			return domain.NewUSDPrice(symbol, price, domain.SourceBinanceStream, at), nil
		}
		p.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("symbol", pair)))
	}

	price, err := p.httpClient.TickerPrice(ctx, pair)
	if err != nil {
		if errors.Is(err, errNotListed) {
			return domain.USDPrice{}, app.ErrUnknownSymbol
		}
		return domain.USDPrice{}, err
	}
	return domain.NewUSDPrice(symbol, price, domain.SourceBinanceREST, p.now()), nil
}
