package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/internal/circuitbreaker"
)

// ErrDecode is returned when a successful response does not match the result type.
var ErrDecode = errors.New("httpclient: failed to decode response")

const maskedValue = "*****"

// Request builds and executes one HTTP call.
type Request interface {
	Get(ctx context.Context, url string) (*Response, error)
	Post(ctx context.Context, url string) (*Response, error)

	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	SetQueryParams(params map[string]string) Request
	SetResult(result any) Request
}

// Response is an http.Response whose body has already been read.
type Response struct {
	*http.Response
	body []byte
}

func (r *Response) Body() []byte {
	return r.body
}

func (r *Response) String() string {
	return string(r.body)
}

// IsError reports a status of 400 or above.
func (r *Response) IsError() bool {
	return r.StatusCode >= http.StatusBadRequest
}

// serverError lets a 5xx count against the breaker while the caller still
// receives the response.
type serverError struct {
	resp *Response
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: %d", e.resp.StatusCode)
}

type requestBuilder struct {
	client  *InstrumentedClient
	opts    requestConfig
	headers map[string]string
	query   url.Values
	body    any
	result  any
}

func (r *requestBuilder) Get(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, url)
}

func (r *requestBuilder) Post(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodPost, url)
}

// SetBody sets the payload. []byte, string and io.Reader are sent as is,
// anything else is JSON encoded.
func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

// SetQueryParam sets a query parameter. Empty values are skipped.
func (r *requestBuilder) SetQueryParam(key, value string) Request {
	if value == "" {
		return r
	}
	if r.query == nil {
		r.query = url.Values{}
	}
	r.query.Set(key, value)
	return r
}

func (r *requestBuilder) SetQueryParams(params map[string]string) Request {
	for k, v := range params {
		r.SetQueryParam(k, v)
	}
	return r
}

// SetResult decodes a successful JSON response into result.
func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) execute(ctx context.Context, method, path string) (*Response, error) {
	c := r.client
	ctx, span := c.cfg.tracer.Start(ctx, "http.request", trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("provider", c.cfg.provider),
	))
	defer span.End()

	if c.cfg.limiter != nil {
		if err := c.cfg.limiter.Wait(ctx); err != nil {
			r.fail(ctx, span, err, 0)
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	payload, err := r.encodeBody()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode body")
		return nil, err
	}
	if payload != nil && c.cfg.logRequest {
		span.AddEvent("request.body", trace.WithAttributes(attribute.String("http.request_body", string(payload))))
	}

	start := time.Now()
	resp, err := r.send(ctx, span, method, r.url(path), payload)
	elapsed := time.Since(start)
	if err != nil {
		r.fail(ctx, span, err, elapsed)
		return nil, err
	}

	if c.cfg.logResponse {
		span.AddEvent("response.body", trace.WithAttributes(attribute.String("http.response_body", string(resp.body))))
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if h := r.opts.errorHandler; h != nil {
		if err := h(resp.StatusCode, resp.body); err != nil {
			r.record(ctx, false, elapsed)
			span.SetStatus(codes.Error, err.Error())
			return resp, err
		}
	}

	if r.result != nil && len(resp.body) > 0 && !resp.IsError() {
		if err := json.Unmarshal(resp.body, r.result); err != nil {
			r.record(ctx, false, elapsed)
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode")
			return resp, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}

	r.record(ctx, !resp.IsError(), elapsed)
	return resp, nil
}

// send performs the round trip, through the breaker when one is configured.
func (r *requestBuilder) send(ctx context.Context, span trace.Span, method, target string, payload []byte) (*Response, error) {
	breaker := r.client.cfg.breaker
	if breaker == nil {
		return r.do(ctx, span, method, target, payload)
	}
	resp, err := breaker.Execute(func() (*Response, error) {
		resp, err := r.do(ctx, span, method, target, payload)
		if err == nil && resp.StatusCode >= http.StatusInternalServerError {
			return resp, &serverError{resp: resp}
		}
		return resp, err
	})
	var srvErr *serverError
	if errors.As(err, &srvErr) {
		return srvErr.resp, nil
	}
	return resp, err
}

func (r *requestBuilder) do(ctx context.Context, span trace.Span, method, target string, payload []byte) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if r.opts.traceHeaders {
		r.traceHeaders(span, req.Header)
	}

	resp, err := r.client.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Response{Response: resp, body: data}, nil
}

// url joins path to the base URL unless it is absolute, then appends the query.
func (r *requestBuilder) url(path string) string {
	target := path
	if base := r.client.cfg.baseURL; base != "" && !strings.HasPrefix(path, "http") {
		target = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(r.query) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + r.query.Encode()
}

func (r *requestBuilder) encodeBody() ([]byte, error) {
	switch b := r.body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case io.Reader:
		return io.ReadAll(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		if _, ok := r.headers["Content-Type"]; !ok {
			r.headers["Content-Type"] = "application/json"
		}
		return data, nil
	}
}

// fail marks the span with what went wrong and counts a failed request.
func (r *requestBuilder) fail(ctx context.Context, span trace.Span, err error, elapsed time.Duration) {
	span.RecordError(err)

	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	case errors.As(err, &netErr) && netErr.Timeout():
		span.SetAttributes(attribute.Bool("request.timeout", true))
	case circuitbreaker.IsOpen(err):
		span.SetAttributes(attribute.Bool("circuit.open", true))
	}

	span.SetStatus(codes.Error, err.Error())
	r.record(ctx, false, elapsed)
}

func (r *requestBuilder) record(ctx context.Context, success bool, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", r.client.cfg.provider),
		attribute.Bool("success", success),
	}
	if r.opts.endpoint != "" {
		attrs = append(attrs, attribute.String("endpoint", r.opts.endpoint))
	}
	set := metric.WithAttributes(attrs...)

	r.client.requests.Add(ctx, 1, set)
	if elapsed > 0 {
		r.client.duration.Record(ctx, elapsed.Seconds(), set)
	}
}

func (r *requestBuilder) traceHeaders(span trace.Span, headers http.Header) {
	if len(headers) == 0 {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(headers))
	for k := range headers {
		key := strings.ToLower(k)
		val := headers.Get(k)
		if r.opts.masked[key] {
			val = maskedValue
		}
		attrs = append(attrs, attribute.String("http.request.header."+key, val))
	}
	span.AddEvent("request.headers", trace.WithAttributes(attrs...))
}
