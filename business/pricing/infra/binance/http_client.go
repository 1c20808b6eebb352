package binance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/circuitbreaker"
	"github.com/fd1az/paybridge/internal/httpclient"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/paybridge/business/pricing/infra/binance"
	meterName  = tracerName

	// BaseAPIURL is the public spot REST endpoint.
	BaseAPIURL = "https://api.binance.com"

	tickerPriceEndpoint = "/api/v3/ticker/price"
	httpTimeout         = 5 * time.Second
)

// errNotListed marks a symbol Binance does not trade.
var errNotListed = errors.New("binance: symbol not listed")

// HTTPClientConfig holds configuration for the Binance REST client.
type HTTPClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerMinute caps REST usage; zero means 1200 (Binance weight budget).
	RequestsPerMinute int
}

// HTTPClient reads spot ticker prices over REST.
type HTTPClient struct {
	client httpclient.Client
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewHTTPClient creates a Binance REST client.
func NewHTTPClient(cfg HTTPClientConfig, log logger.LoggerInterface) (*HTTPClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}
	rpm := cfg.RequestsPerMinute
	if rpm == 0 {
		rpm = 1200
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTracer(tracer, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{"Accept": "application/json"}),
		httpclient.WithRateLimiter(ratelimit.New(rpm)),
		httpclient.WithCircuitBreaker(circuitbreaker.DefaultConfig("binance-rest")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &HTTPClient{client: client, logger: log, tracer: tracer}, nil
}

// TickerPrice returns the last traded price for a pair symbol such as ETHUSDT.
func (c *HTTPClient) TickerPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	ctx, span := c.tracer.Start(ctx, "binance.http.ticker_price",
		trace.WithAttributes(attribute.String("symbol", pair)))
	defer span.End()

	var result TickerPriceResponse
	_, err := c.client.NewRequestWithOptions(
		httpclient.WithEndpoint("ticker_price"),
		httpclient.WithResponseErrorHandler(errorHandler),
	).
		SetQueryParam("symbol", pair).
		SetResult(&result).
		Get(ctx, tickerPriceEndpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ticker price")
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == invalidSymbolCode {
			return decimal.Zero, errNotListed
		}
		return decimal.Zero, apperror.New(apperror.CodePriceFeedFailed,
			apperror.WithCause(err),
			apperror.WithContext("binance ticker "+pair))
	}

	price, err := decimal.NewFromString(result.Price)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodePriceFeedFailed,
			apperror.WithCause(err),
			apperror.WithContext("binance ticker parse "+pair))
	}

	c.logger.Debug(ctx, "fetched ticker via HTTP", "symbol", pair, "price", price.String())
	return price, nil
}
