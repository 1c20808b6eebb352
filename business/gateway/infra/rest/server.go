// Package rest serves the public HTTP API.
package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	executionApp "github.com/fd1az/paybridge/business/execution/app"
	routingApp "github.com/fd1az/paybridge/business/routing/app"
	settlement "github.com/fd1az/paybridge/business/settlement/domain"
	"github.com/fd1az/paybridge/internal/apm"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/ratelimit"
)

const tracerName = "github.com/fd1az/paybridge/business/gateway/infra/rest"

// QuoteService solves quotes.
type QuoteService interface {
	Quote(ctx context.Context, req routingApp.QuoteRequest) (routingApp.QuoteResult, error)
}

// ExecutionService submits envelopes.
type ExecutionService interface {
	Execute(ctx context.Context, req executionApp.ExecuteRequest) (executionApp.Result, error)
}

// RecordReader serves transaction records.
type RecordReader interface {
	Get(ctx context.Context, txHash string) (settlement.Record, error)
}

// Options configures the API server.
type Options struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit      float64
	RateLimitBurst int
}

// Server is the public API.
type Server struct {
	r          chi.Router
	quotes     QuoteService
	executions ExecutionService
	records    RecordReader
	log        logger.LoggerInterface
	tracer     apm.Tracer
	limiter    *ratelimit.KeyedLimiter
	opts       Options
}

// NewServer creates the API server and mounts its routes.
func NewServer(opts Options, quotes QuoteService, executions ExecutionService, records RecordReader, log logger.LoggerInterface) *Server {
	s := &Server{
		quotes:     quotes,
		executions: executions,
		records:    records,
		log:        log,
		tracer:     apm.NewTracer(tracerName),
		opts:       opts,
	}
	if opts.RateLimit > 0 {
		s.limiter = ratelimit.NewKeyed(opts.RateLimit, opts.RateLimitBurst)
	}
	s.routes()
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.opts.Port),
		Handler:           s,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.opts.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "api server listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info(shutdownCtx, "api server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
