// Package binance implements the PriceFeed port on Binance spot tickers.
package binance

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StreamEvent is the combined-stream wrapper.
type StreamEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// MiniTickerEvent is the 24h rolling mini ticker.
// Stream: <symbol>@miniTicker
type MiniTickerEvent struct {
	EventType   string `json:"e"` // "24hrMiniTicker"
	EventTime   int64  `json:"E"` // ms
	Symbol      string `json:"s"`
	ClosePrice  string `json:"c"`
	OpenPrice   string `json:"o"`
	HighPrice   string `json:"h"`
	LowPrice    string `json:"l"`
	BaseVolume  string `json:"v"`
	QuoteVolume string `json:"q"`
}

// ParseClose parses the last price.
func (e *MiniTickerEvent) ParseClose() (decimal.Decimal, error) {
	return decimal.NewFromString(e.ClosePrice)
}

// Timestamp returns the event time.
func (e *MiniTickerEvent) Timestamp() time.Time {
	return time.UnixMilli(e.EventTime)
}

// TickerPriceResponse is GET /api/v3/ticker/price.
type TickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// APIError is Binance's error body.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// invalidSymbolCode is returned for pairs Binance does not list.
const invalidSymbolCode = -1121

func errorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		return &apiErr
	}
	return fmt.Errorf("HTTP %d", statusCode)
}
