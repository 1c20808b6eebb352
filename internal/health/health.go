// Package health serves liveness, readiness and dependency probes on a
// separate port from the public API.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fd1az/paybridge/internal/logger"
)

const (
	checkTimeout = 5 * time.Second

	statusOK       = "ok"
	statusDegraded = "degraded"
)

// Status is the /health body.
type Status struct {
	Status    string           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Version   string           `json:"version,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// Healthy reports whether every check passed.
func (s Status) Healthy() bool {
	return s.Status == statusOK
}

// Check is the outcome of one dependency probe.
type Check struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
	Took    string `json:"took"`
}

// CheckFunc returns nil when the dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Server runs the registered checks on demand.
type Server struct {
	addr    string
	version string
	log     logger.LoggerInterface

	mu     sync.RWMutex
	checks map[string]CheckFunc

	srv *http.Server
}

func NewServer(addr, version string, log logger.LoggerInterface) *Server {
	return &Server{addr: addr, version: version, log: log, checks: map[string]CheckFunc{}}
}

// RegisterCheck adds or replaces the check called name.
func (s *Server) RegisterCheck(name string, check CheckFunc) {
	s.mu.Lock()
	s.checks[name] = check
	s.mu.Unlock()
}

// Handler mounts /health, /ready and /live.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Get("/live", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "alive")
	})
	return r
}

// Start listens in the background until Stop.
func (s *Server) Start() {
	s.srv = &http.Server{Addr: s.addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		err := s.srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(context.Background(), "health listener failed", "addr", s.addr, "error", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Run probes every dependency in parallel under a shared deadline.
func (s *Server) Run(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	funcs := make([]CheckFunc, 0, len(s.checks))
	for name, fn := range s.checks {
		names = append(names, name)
		funcs = append(funcs, fn)
	}
	s.mu.RUnlock()

	results := make([]Check, len(funcs))
	var wg sync.WaitGroup
	for i, fn := range funcs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = probe(ctx, fn)
		}()
	}
	wg.Wait()

	st := Status{
		Status:    statusOK,
		Checks:    make(map[string]Check, len(results)),
		Version:   s.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for i, c := range results {
		st.Checks[names[i]] = c
		if !c.Healthy {
			st.Status = statusDegraded
		}
	}
	return st
}

func probe(ctx context.Context, fn CheckFunc) Check {
	start := time.Now()
	err := fn(ctx)
	c := Check{Healthy: err == nil, Took: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		c.Message = err.Error()
	}
	return c
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	st := s.Run(r.Context())
	code := http.StatusOK
	if !st.Healthy() {
		code = http.StatusServiceUnavailable
		s.log.Warn(r.Context(), "dependency checks failing", "checks", st.Checks)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(st)
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if !s.Run(r.Context()).Healthy() {
		writeText(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeText(w, http.StatusOK, "ready")
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}
