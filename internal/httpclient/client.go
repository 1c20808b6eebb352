package httpclient

import (
	"context"
	"maps"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "instrumented_http_client"

	defaultTimeout         = 10 * time.Second
	defaultKeepAlive       = 10 * time.Second
	defaultMaxConnsPerHost = 5
	defaultIdleConnTimeout = 2 * time.Minute
	defaultExpectContinue  = 100 * time.Millisecond

	metricRequests = "http_client_requests_total"
	metricDuration = "http_client_request_duration_seconds"
)

// Client builds requests against one remote.
type Client interface {
	NewRequest() Request
	NewRequestWithOptions(opts ...RequestOption) Request
}

// InstrumentedClient is a Client whose requests are traced, counted and timed
// per provider and endpoint.
type InstrumentedClient struct {
	cfg      clientConfig
	hc       *http.Client
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewInstrumentedClient creates a client from opts. The meter and, unless
// WithTracer is given, the tracer come from the global providers.
func NewInstrumentedClient(opts ...ClientOption) (Client, error) {
	cfg := clientConfig{provider: "default", timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}

	meter := otel.GetMeterProvider().Meter(instrumentationName,
		metric.WithInstrumentationAttributes(attribute.String("provider", cfg.provider)))
	requests, err := meter.Int64Counter(metricRequests,
		metric.WithDescription("Total number of HTTP requests"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(metricDuration,
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedClient{
		cfg:      cfg,
		hc:       &http.Client{Timeout: cfg.timeout, Transport: newTransport()},
		requests: requests,
		duration: duration,
	}, nil
}

// newTransport is a pooled transport wrapped with otelhttp, so every dial,
// TLS handshake and first byte shows up under the request span.
func newTransport() http.RoundTripper {
	base := &http.Transport{
		DialContext:           (&net.Dialer{KeepAlive: defaultKeepAlive}).DialContext,
		MaxConnsPerHost:       defaultMaxConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		ExpectContinueTimeout: defaultExpectContinue,
	}
	return otelhttp.NewTransport(base,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)
}

// NewRequest starts a request with no per-request options.
func (c *InstrumentedClient) NewRequest() Request {
	return c.NewRequestWithOptions()
}

// NewRequestWithOptions starts a request. Client headers are copied so the
// request may override them.
func (c *InstrumentedClient) NewRequestWithOptions(opts ...RequestOption) Request {
	var rc requestConfig
	for _, opt := range opts {
		opt(&rc)
	}
	headers := make(map[string]string, len(c.cfg.headers))
	maps.Copy(headers, c.cfg.headers)
	return &requestBuilder{client: c, opts: rc, headers: headers}
}
