package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fd1az/paybridge/internal/circuitbreaker"
)

type quoteBody struct {
	Amount string `json:"amount"`
}

func TestRequest_GetDecodesResultAndEscapesQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("toAddress")
		if r.Header.Get("x-integrator-id") != "pb" {
			t.Errorf("missing default header")
		}
		_, _ = w.Write([]byte(`{"amount":"1000"}`))
	}))
	defer srv.Close()

	client, err := NewInstrumentedClient(
		WithBaseURL(srv.URL),
		WithHeaders(map[string]string{"x-integrator-id": "pb"}),
	)
	if err != nil {
		t.Fatalf("NewInstrumentedClient: %v", err)
	}

	var out quoteBody
	resp, err := client.NewRequest().
		SetQueryParam("toAddress", "a b&c").
		SetQueryParam("empty", "").
		SetResult(&out).
		Get(context.Background(), "/v1/quote")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusOK || out.Amount != "1000" {
		t.Errorf("status=%d amount=%q", resp.StatusCode, out.Amount)
	}
	if gotQuery != "a b&c" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestRequest_PostSendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		_, _ = w.Write([]byte(`{"amount":"7"}`))
	}))
	defer srv.Close()

	client, err := NewInstrumentedClient(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	var out quoteBody
	if _, err := client.NewRequest().SetBody(map[string]string{"a": "b"}).SetResult(&out).Post(context.Background(), "route"); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if out.Amount != "7" {
		t.Errorf("amount = %q", out.Amount)
	}
}

func TestRequest_DecodeErrorOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client, _ := NewInstrumentedClient(WithBaseURL(srv.URL))
	var out quoteBody
	_, err := client.NewRequest().SetResult(&out).Get(context.Background(), "/")
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestRequest_ErrorHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad"}`))
	}))
	defer srv.Close()

	client, _ := NewInstrumentedClient(WithBaseURL(srv.URL))
	sentinel := errors.New("rejected")
	_, err := client.NewRequestWithOptions(WithResponseErrorHandler(func(status int, _ []byte) error {
		if status >= 400 {
			return sentinel
		}
		return nil
	})).Get(context.Background(), "/")
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want sentinel", err)
	}
}

func TestRequest_CircuitBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cbCfg := circuitbreaker.DefaultConfig("test")
	cbCfg.ConsecutiveFailures = 2
	cbCfg.Timeout = time.Hour

	client, _ := NewInstrumentedClient(WithBaseURL(srv.URL), WithCircuitBreaker(cbCfg))

	for i := 0; i < 2; i++ {
		resp, err := client.NewRequest().Get(context.Background(), "/")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if resp.StatusCode != http.StatusBadGateway {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	}

	_, err := client.NewRequest().Get(context.Background(), "/")
	if !circuitbreaker.IsOpen(err) {
		t.Errorf("err = %v, want open breaker", err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}

func TestRequest_ClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cbCfg := circuitbreaker.DefaultConfig("test")
	cbCfg.ConsecutiveFailures = 1
	client, _ := NewInstrumentedClient(WithBaseURL(srv.URL), WithCircuitBreaker(cbCfg))

	for i := 0; i < 3; i++ {
		if _, err := client.NewRequest().Get(context.Background(), "/"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestRequest_HeaderTraceMasksCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	client, err := NewInstrumentedClient(
		WithBaseURL(srv.URL),
		WithTracer(tp.Tracer("test")),
		WithHeaders(map[string]string{"x-lifi-api-key": "secret", "Accept": "application/json"}),
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.NewRequestWithOptions(WithEndpoint("quote"), WithHeaderTrace("X-LIFI-API-KEY")).
		Get(context.Background(), "/v1/quote"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	got := map[string]string{}
	for _, span := range rec.Ended() {
		for _, ev := range span.Events() {
			if ev.Name != "request.headers" {
				continue
			}
			for _, kv := range ev.Attributes {
				got[string(kv.Key)] = kv.Value.AsString()
			}
		}
	}
	if got["http.request.header.x-lifi-api-key"] != maskedValue {
		t.Errorf("api key traced as %q", got["http.request.header.x-lifi-api-key"])
	}
	if got["http.request.header.accept"] != "application/json" {
		t.Errorf("accept traced as %q", got["http.request.header.accept"])
	}
}
