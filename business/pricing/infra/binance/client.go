package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/wsconn"
)

// BaseWSURL is the public spot stream endpoint.
const BaseWSURL = "wss://stream.binance.com:9443"

// StreamConfig holds configuration for the ticker stream.
type StreamConfig struct {
	BaseURL string
	// Pairs are exchange symbols such as ETHUSDT.
	Pairs        []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type tick struct {
	price decimal.Decimal
	at    time.Time
}

// StreamClient keeps the latest mini-ticker close per pair.
type StreamClient struct {
	config StreamConfig
	logger logger.LoggerInterface

	conn   *wsconn.Client
	connMu sync.Mutex

	ticks   map[string]tick
	ticksMu sync.RWMutex

	messages    metric.Int64Counter
	parseErrors metric.Int64Counter
}

// NewStreamClient creates a ticker stream client.
func NewStreamClient(cfg StreamConfig, log logger.LoggerInterface) (*StreamClient, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseWSURL
	}

	meter := otel.Meter(meterName)
	messages, err := meter.Int64Counter("binance_messages_total",
		metric.WithDescription("Total stream messages received"))
	if err != nil {
		return nil, err
	}
	parseErrors, err := meter.Int64Counter("binance_parse_errors_total",
		metric.WithDescription("Stream message parse errors"))
	if err != nil {
		return nil, err
	}

	return &StreamClient{
		config:      cfg,
		logger:      log,
		ticks:       make(map[string]tick),
		messages:    messages,
		parseErrors: parseErrors,
	}, nil
}

// Connect opens the combined stream and keeps it alive until Close.
func (c *StreamClient) Connect(ctx context.Context) error {
	wsURL, err := c.buildStreamURL()
	if err != nil {
		return err
	}

	wsCfg := wsconn.DefaultConfig(wsURL, "binance")
	if c.config.ReadTimeout > 0 {
		wsCfg.ReadTimeout = c.config.ReadTimeout
	}
	if c.config.WriteTimeout > 0 {
		wsCfg.WriteTimeout = c.config.WriteTimeout
	}

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return apperror.New(apperror.CodePriceFeedFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to create wsconn"))
	}
	conn.OnMessage(c.handleMessage)
	conn.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			c.logger.Warn(context.Background(), "binance stream state", "state", string(state), "error", err)
		}
	})

	if err := conn.ConnectWithRetry(ctx); err != nil {
		_ = conn.Close()
		return apperror.New(apperror.CodePriceFeedFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect to Binance stream"))
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.logger.Info(ctx, "binance stream connected", "url", wsURL, "pairs", c.config.Pairs)
	return nil
}

func (c *StreamClient) buildStreamURL() (string, error) {
	if len(c.config.Pairs) == 0 {
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("no pairs configured for binance stream"))
	}
	streams := make([]string, 0, len(c.config.Pairs))
	for _, p := range c.config.Pairs {
		streams = append(streams, strings.ToLower(p)+"@miniTicker")
	}
	return fmt.Sprintf("%s/stream?streams=%s", strings.TrimSuffix(c.config.BaseURL, "/"), strings.Join(streams, "/")), nil
}

func (c *StreamClient) handleMessage(ctx context.Context, data []byte) {
	c.messages.Add(ctx, 1)

	var event StreamEvent
	if err := json.Unmarshal(data, &event); err != nil || len(event.Data) == 0 {
		c.parseErrors.Add(ctx, 1)
		return
	}

	var ticker MiniTickerEvent
	if err := json.Unmarshal(event.Data, &ticker); err != nil {
		c.parseErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stream", event.Stream)))
		return
	}
	price, err := ticker.ParseClose()
	if err != nil {
		c.parseErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stream", event.Stream)))
		return
	}

	at := ticker.Timestamp()
	if ticker.EventTime == 0 {
		at = time.Now()
	}
	c.ticksMu.Lock()
	c.ticks[strings.ToUpper(ticker.Symbol)] = tick{price: price, at: at}
	c.ticksMu.Unlock()
}

// Latest returns the last observed close for pair.
func (c *StreamClient) Latest(pair string) (decimal.Decimal, time.Time, bool) {
	c.ticksMu.RLock()
	defer c.ticksMu.RUnlock()
	t, ok := c.ticks[strings.ToUpper(pair)]
	return t.price, t.at, ok
}

// Close closes the stream.
func (c *StreamClient) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
