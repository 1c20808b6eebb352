// Package httpclient provides an instrumented HTTP client for vendor and
// webhook calls: OTel spans and request metrics, optional client-side rate
// limiting and circuit breaking.
package httpclient

import (
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/internal/circuitbreaker"
	"github.com/fd1az/paybridge/internal/ratelimit"
)

// TraceOption selects which bodies are attached to request spans.
type TraceOption string

const (
	TraceRequest  TraceOption = "request"
	TraceResponse TraceOption = "response"
)

type clientConfig struct {
	provider    string
	baseURL     string
	timeout     time.Duration
	headers     map[string]string
	tracer      trace.Tracer
	logRequest  bool
	logResponse bool
	limiter     *ratelimit.Limiter
	breaker     *circuitbreaker.CircuitBreaker[*Response]
}

// ClientOption configures NewInstrumentedClient.
type ClientOption func(*clientConfig)

// WithProviderName names the remote in metrics and spans.
func WithProviderName(name string) ClientOption {
	return func(c *clientConfig) { c.provider = name }
}

// WithBaseURL is prefixed to relative request paths.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithRequestTimeout bounds each request, including reading the body.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = timeout }
}

// WithHeaders are sent on every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *clientConfig) { c.headers = headers }
}

// WithTracer sets the span tracer and which bodies to record on spans.
func WithTracer(tracer trace.Tracer, bodies ...TraceOption) ClientOption {
	return func(c *clientConfig) {
		c.tracer = tracer
		for _, b := range bodies {
			c.logRequest = c.logRequest || b == TraceRequest
			c.logResponse = c.logResponse || b == TraceResponse
		}
	}
}

// WithRateLimiter makes every request wait for a limiter token first.
func WithRateLimiter(l *ratelimit.Limiter) ClientOption {
	return func(c *clientConfig) { c.limiter = l }
}

// WithCircuitBreaker routes requests through a breaker. Transport errors and
// 5xx responses count as failures; 4xx responses do not.
func WithCircuitBreaker(cfg circuitbreaker.Config) ClientOption {
	return func(c *clientConfig) { c.breaker = circuitbreaker.New[*Response](cfg) }
}

// ResponseErrorHandler turns a completed response into an error, or nil to
// accept it.
type ResponseErrorHandler func(statusCode int, body []byte) error

type requestConfig struct {
	errorHandler ResponseErrorHandler
	endpoint     string
	traceHeaders bool
	masked       map[string]bool
}

// RequestOption configures a single request.
type RequestOption func(*requestConfig)

// WithResponseErrorHandler maps statuses and bodies to errors.
func WithResponseErrorHandler(handler ResponseErrorHandler) RequestOption {
	return func(c *requestConfig) { c.errorHandler = handler }
}

// WithEndpoint labels the request metrics with a logical endpoint name.
func WithEndpoint(name string) RequestOption {
	return func(c *requestConfig) { c.endpoint = name }
}

// WithHeaderTrace records request headers on the span, replacing the values
// of the masked headers (case-insensitive).
func WithHeaderTrace(masked ...string) RequestOption {
	return func(c *requestConfig) {
		c.traceHeaders = true
		c.masked = make(map[string]bool, len(masked))
		for _, h := range masked {
			c.masked[strings.ToLower(h)] = true
		}
	}
}
