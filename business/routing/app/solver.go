package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/business/routing/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/logger"
)

const (
	tracerName = "github.com/fd1az/paybridge/business/routing/app"
	meterName  = tracerName
)

// SolverConfig holds the search parameters.
type SolverConfig struct {
	MaxIterations int
	// BufferFactor scales each shortfall correction; must exceed 1.
	BufferFactor decimal.Decimal
	// PlatformFeeRate is a fraction of the requested amount (0.005 = 0.5%).
	PlatformFeeRate decimal.Decimal
	QuoteTTL        time.Duration
	Timeout         time.Duration
}

// DefaultSolverConfig returns the production defaults.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MaxIterations:   5,
		BufferFactor:    decimal.RequireFromString("1.1"),
		PlatformFeeRate: decimal.RequireFromString("0.005"),
		QuoteTTL:        21 * time.Second,
		Timeout:         20 * time.Second,
	}
}

// Solver searches for the smallest source amount whose provider minimum meets
// the requested destination amount, then prices fees on top.
type Solver struct {
	cfg         SolverConfig
	oracle      PriceOracle
	platformFee domain.PlatformFee
	logger      logger.LoggerInterface
	tracer      trace.Tracer
	iterations  metric.Int64Histogram
	outcomes    metric.Int64Counter
	now         func() time.Time
}

// NewSolver validates cfg and creates a Solver.
func NewSolver(cfg SolverConfig, oracle PriceOracle, log logger.LoggerInterface) (*Solver, error) {
	if cfg.MaxIterations < 1 {
		return nil, fmt.Errorf("solver: max iterations must be at least 1, got %d", cfg.MaxIterations)
	}
	if !cfg.BufferFactor.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("solver: buffer factor must exceed 1, got %s", cfg.BufferFactor)
	}
	if cfg.PlatformFeeRate.IsNegative() {
		return nil, fmt.Errorf("solver: negative platform fee")
	}

	meter := otel.Meter(meterName)
	iterations, err := meter.Int64Histogram("solver_iterations",
		metric.WithDescription("Provider quotes needed to converge"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 8))
	if err != nil {
		return nil, err
	}
	outcomes, err := meter.Int64Counter("solver_outcomes_total",
		metric.WithDescription("Solver runs by provider and outcome"))
	if err != nil {
		return nil, err
	}

	return &Solver{
		cfg:         cfg,
		oracle:      oracle,
		platformFee: domain.NewPlatformFee(cfg.PlatformFeeRate),
		logger:      log,
		tracer:      otel.Tracer(tracerName),
		iterations:  iterations,
		outcomes:    outcomes,
		now:         time.Now,
	}, nil
}

// Solve runs the search against p. Any provider failure, non-convergence or
// an under-delivering final quote fails with CodeQuoteUnreachable.
func (s *Solver) Solve(ctx context.Context, p Provider, req domain.RouteRequest) (domain.Quote, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	ctx, span := s.tracer.Start(ctx, "solver.solve", trace.WithAttributes(
		attribute.String("provider", p.Name()),
		attribute.String("from", req.From.String()),
		attribute.String("to", req.To.String()),
		attribute.String("to_amount", req.ToAmount.RawString()),
	))
	defer span.End()

	q, iters, err := s.solve(ctx, p, req)
	outcome := "ok"
	if err != nil {
		outcome = "unreachable"
		span.RecordError(err)
		span.SetStatus(codes.Error, "unreachable")
	}
	attrs := metric.WithAttributes(attribute.String("provider", p.Name()), attribute.String("outcome", outcome))
	s.outcomes.Add(ctx, 1, attrs)
	s.iterations.Record(ctx, int64(iters), attrs)
	span.SetAttributes(attribute.Int("iterations", iters))
	return q, err
}

func (s *Solver) solve(ctx context.Context, p Provider, req domain.RouteRequest) (domain.Quote, int, error) {
	target := req.ToAmount
	src := req.From

	// spot seed, fees deliberately ignored
	candidate, err := s.oracle.Convert(ctx, target, src, asset.RoundUp)
	if err != nil {
		return domain.Quote{}, 0, unreachable("seed conversion", err)
	}
	if !candidate.IsPositive() {
		candidate = asset.NewAmountFromInt64(src, 1)
	}

	var (
		pq        domain.ProviderQuote
		converged bool
		iters     int
	)
	for iters < s.cfg.MaxIterations {
		iters++
		pq, err = p.Quote(ctx, req.Route, candidate)
		if err != nil {
			return domain.Quote{}, iters, unreachable("provider quote", err)
		}

		ok, err := pq.DestAmountMin.Covers(target)
		if err != nil {
			return domain.Quote{}, iters, unreachable("provider returned wrong destination asset", err)
		}
		s.logger.Debug(ctx, "solver iteration",
			"provider", p.Name(), "iteration", iters,
			"candidate", candidate.RawString(), "dest_min", pq.DestAmountMin.RawString())
		if ok {
			converged = true
			break
		}

		shortfall, err := target.Sub(pq.DestAmountMin)
		if err != nil {
			return domain.Quote{}, iters, unreachable("shortfall", err)
		}
		shortfallSrc, err := s.oracle.Convert(ctx, shortfall, src, asset.RoundUp)
		if err != nil {
			return domain.Quote{}, iters, unreachable("shortfall conversion", err)
		}
		bump := shortfallSrc.MulDecimal(s.cfg.BufferFactor, asset.RoundUp)
		if !bump.IsPositive() {
			bump = asset.NewAmountFromInt64(src, 1)
		}
		candidate = candidate.MustAdd(bump)
	}
	if !converged {
		return domain.Quote{}, iters, apperror.New(apperror.CodeQuoteUnreachable,
			apperror.WithContext(fmt.Sprintf("no convergence after %d iterations", iters)))
	}

	providerFee := pq.Fees.Total(src)
	platformFee, err := s.oracle.Convert(ctx, s.platformFee.Of(target), src, asset.RoundUp)
	if err != nil {
		return domain.Quote{}, iters, unreachable("platform fee conversion", err)
	}
	final := candidate.MustAdd(providerFee).MustAdd(platformFee)

	fq, err := p.Quote(ctx, req.Route, final)
	if err != nil {
		return domain.Quote{}, iters, unreachable("final quote", err)
	}
	if ok, err := fq.DestAmountMin.Covers(target); err != nil || !ok {
		return domain.Quote{}, iters, apperror.New(apperror.CodeQuoteUnreachable,
			apperror.WithCause(err),
			apperror.WithContext("final quote below requested amount: "+fq.DestAmountMin.RawString()))
	}

	estimate := fq.DestAmount
	if estimate.Asset() == nil || !estimate.IsPositive() {
		estimate, err = s.oracle.Convert(ctx, final, req.To, asset.RoundDown)
		if err != nil {
			estimate = fq.DestAmountMin
		}
	}

	now := s.now()
	return domain.Quote{
		RequestID:        fq.RequestID,
		Provider:         p.Name(),
		Route:            req.Route,
		FromAmount:       final,
		ToAmount:         target,
		ToAmountEstimate: estimate,
		ToAmountMin:      fq.DestAmountMin,
		PlatformFee:      platformFee,
		ProviderFee:      providerFee,
		Payload:          fq.Payload,
		MerchantAddress:  req.MerchantAddress,
		MerchantWebhook:  req.MerchantWebhook,
		IssuedAt:         now,
		Expiry:           now.Add(s.cfg.QuoteTTL),
	}, iters, nil
}

// unreachable keeps the provider's code in the log context, never in the caller message.
func unreachable(stage string, cause error) error {
	code := apperror.GetCode(cause)
	if errors.Is(cause, context.DeadlineExceeded) {
		code = apperror.CodeServiceTimeout
	}
	return apperror.New(apperror.CodeQuoteUnreachable,
		apperror.WithCause(cause),
		apperror.WithContext(fmt.Sprintf("%s: %s", stage, code)))
}
