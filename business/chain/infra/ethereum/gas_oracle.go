package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/paybridge/business/chain/app"
	"github.com/fd1az/paybridge/business/chain/domain"
	"github.com/fd1az/paybridge/internal/apperror"
	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/cache"
	"github.com/fd1az/paybridge/internal/circuitbreaker"
	"github.com/fd1az/paybridge/internal/logger"
)

var _ app.GasOracle = (*GasOracle)(nil)

const gasPriceKey = "suggested"

// GasOracleConfig tunes the oracle of one chain.
type GasOracleConfig struct {
	ChainID uint64
	// CacheTTL is how long a suggested price is reused, about one block.
	CacheTTL    time.Duration
	MaxGasPrice *big.Int
	// LimitBuffer is the fractional margin on top of estimates (0.1 = +10%).
	LimitBuffer float64
}

// DefaultGasOracleConfig caps prices at 500 gwei with a 10% limit margin.
func DefaultGasOracleConfig(chainID uint64) GasOracleConfig {
	return GasOracleConfig{
		ChainID:     chainID,
		CacheTTL:    12 * time.Second,
		MaxGasPrice: domain.GweiToWei(500),
		LimitBuffer: 0.1,
	}
}

type gasInstruments struct {
	fetches   metric.Int64Counter
	hits      metric.Int64Counter
	estimates metric.Int64Counter
	gwei      metric.Float64Gauge
}

func newGasInstruments() (gasInstruments, error) {
	var (
		in  gasInstruments
		err error
	)
	meter := otel.Meter(meterName)
	counter := func(name, desc string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(name, metric.WithDescription(desc))
		return c
	}
	in.fetches = counter("gas_price_fetches_total", "Suggested gas price RPC calls")
	in.hits = counter("gas_cache_hits_total", "Gas price reads served from cache")
	in.estimates = counter("gas_estimate_total", "Gas limit estimations")
	if err != nil {
		return in, err
	}
	in.gwei, err = meter.Float64Gauge("gas_price_gwei",
		metric.WithDescription("Last suggested gas price"), metric.WithUnit("gwei"))
	return in, err
}

// GasOracle prices and sizes relay transactions on one chain. Suggested
// prices are cached per block and clamped to MaxGasPrice.
type GasOracle struct {
	cfg     GasOracleConfig
	log     logger.LoggerInterface
	backend Backend
	prices  *cache.Cache[string, *domain.GasPrice]
	breaker *circuitbreaker.CircuitBreaker[*big.Int]
	tracer  trace.Tracer
	inst    gasInstruments
	chain   metric.MeasurementOption
}

// NewGasOracle creates a gas oracle over backend.
func NewGasOracle(cfg GasOracleConfig, backend Backend, log logger.LoggerInterface) (*GasOracle, error) {
	inst, err := newGasInstruments()
	if err != nil {
		return nil, fmt.Errorf("gas oracle metrics: %w", err)
	}
	name := asset.ChainName(cfg.ChainID)
	return &GasOracle{
		cfg:     cfg,
		log:     log,
		backend: backend,
		prices:  cache.New[string, *domain.GasPrice](time.Minute),
		breaker: circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("gas-oracle-" + name)),
		tracer:  otel.Tracer(tracerName),
		inst:    inst,
		chain:   metric.WithAttributes(attribute.String("chain", name)),
	}, nil
}

// GetGasPrice returns the suggested legacy gas price, clamped to the ceiling.
func (g *GasOracle) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.price",
		trace.WithAttributes(attribute.Int64("chain_id", int64(g.cfg.ChainID))))
	defer span.End()

	if p, ok := g.prices.Get(ctx, gasPriceKey); ok {
		g.inst.hits.Add(ctx, 1, g.chain)
		span.SetAttributes(attribute.Bool("cached", true))
		return p, nil
	}

	g.inst.fetches.Add(ctx, 1, g.chain)
	wei, err := g.breaker.Execute(func() (*big.Int, error) {
		return g.backend.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "suggest gas price")
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("suggest gas price on "+asset.ChainName(g.cfg.ChainID)))
	}

	p := domain.NewGasPrice(g.clamp(ctx, wei))
	g.prices.Set(ctx, gasPriceKey, p, g.cfg.CacheTTL)
	g.inst.gwei.Record(ctx, p.Gwei, g.chain)
	span.SetAttributes(attribute.Float64("gwei", p.Gwei))
	return p, nil
}

func (g *GasOracle) clamp(ctx context.Context, wei *big.Int) *big.Int {
	ceiling := g.cfg.MaxGasPrice
	if ceiling == nil || wei.Cmp(ceiling) <= 0 {
		return wei
	}
	g.log.Warn(ctx, "suggested gas price above ceiling",
		"chain_id", g.cfg.ChainID,
		"suggested_gwei", domain.WeiToGwei(wei),
		"ceiling_gwei", domain.WeiToGwei(ceiling),
	)
	return new(big.Int).Set(ceiling)
}

// EstimateGas estimates call from `from` and adds LimitBuffer on top.
func (g *GasOracle) EstimateGas(ctx context.Context, from common.Address, call domain.Call) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate", trace.WithAttributes(
		attribute.String("to", call.To.Hex()),
		attribute.Int("calldata_bytes", len(call.Data)),
	))
	defer span.End()
	g.inst.estimates.Add(ctx, 1, g.chain)

	to := call.To
	msg := ethereum.CallMsg{From: from, To: &to, Value: call.Value, Data: call.Data}
	limit, err := g.backend.EstimateGas(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate gas")
		return 0, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext("call to "+to.Hex()))
	}

	limit += uint64(float64(limit) * g.cfg.LimitBuffer)
	span.SetAttributes(attribute.Int64("gas_limit", int64(limit)))
	return limit, nil
}

// Close stops the price cache janitor.
func (g *GasOracle) Close() error {
	g.prices.Close()
	return nil
}
