// Package chain implements the chain access bounded context: ERC20 reads,
// receipts, gas pricing and the sponsored relayer.
package chain

import (
	"context"
	"strconv"
	"time"

	"github.com/fd1az/paybridge/business/chain/app"
	chainDI "github.com/fd1az/paybridge/business/chain/di"
	"github.com/fd1az/paybridge/business/chain/domain"
	"github.com/fd1az/paybridge/business/chain/infra/ethereum"
	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/config"
	"github.com/fd1az/paybridge/internal/di"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/monolith"
)

const dialTimeout = 15 * time.Second

// Module implements the chain bounded context.
type Module struct{}

// RegisterServices registers all chain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// One RPC client per configured chain
	di.RegisterToken(c, chainDI.Backends, func(sr di.ServiceRegistry) ethereum.Backends {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		backends := make(ethereum.Backends, len(cfg.Chains))
		for name, cc := range cfg.Chains {
			ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
			client, err := ethereum.Dial(ctx, cc.RPCURL, cc.ChainID)
			cancel()
			if err != nil {
				panic("failed to dial chain " + name + ": " + err.Error())
			}
			backends[cc.ChainID] = client
			log.Info(ctx, "chain rpc connected", "chain", name, "chain_id", cc.ChainID)
		}
		return backends
	})

	// Relayer credentials, immutable after startup
	di.RegisterToken(c, chainDI.Credentials, func(sr di.ServiceRegistry) map[uint64]domain.RelayerCredentials {
		cfg := sr.Get("config").(*config.Config)
		creds, err := ethereum.LoadCredentials(cfg.Chains)
		if err != nil {
			panic("invalid relayer credentials: " + err.Error())
		}
		return creds
	})

	di.RegisterToken(c, chainDI.GasOracles, func(sr di.ServiceRegistry) map[uint64]*ethereum.GasOracle {
		log := sr.Get("logger").(logger.LoggerInterface)
		creds := chainDI.GetCredentials(sr)

		oracles := make(map[uint64]*ethereum.GasOracle)
		for id, backend := range chainDI.GetBackends(sr) {
			oracleCfg := ethereum.DefaultGasOracleConfig(id)
			if cr, ok := creds[id]; ok {
				if cr.MaxGasPrice != nil {
					oracleCfg.MaxGasPrice = cr.MaxGasPrice
				}
				if cr.GasLimitBuffer > 0 {
					oracleCfg.LimitBuffer = cr.GasLimitBuffer
				}
			}
			oracle, err := ethereum.NewGasOracle(oracleCfg, backend, log)
			if err != nil {
				panic("failed to create gas oracle: " + err.Error())
			}
			oracles[id] = oracle
		}
		return oracles
	})

	di.RegisterToken(c, chainDI.Relayer, func(sr di.ServiceRegistry) *ethereum.Relayer {
		log := sr.Get("logger").(logger.LoggerInterface)
		backends := chainDI.GetBackends(sr)
		oracles := chainDI.GetGasOracles(sr)

		var chains []ethereum.RelayerChain
		for id, cr := range chainDI.GetCredentials(sr) {
			backend, ok := backends[id]
			if !ok {
				panic("relayer configured for chain " + strconv.FormatUint(id, 10) + " without rpc")
			}
			chains = append(chains, ethereum.RelayerChain{Credentials: cr, Backend: backend, Gas: oracles[id]})
		}
		relayer, err := ethereum.NewRelayer(chains, log)
		if err != nil {
			panic("failed to create relayer: " + err.Error())
		}
		return relayer
	})

	// Register ChainService (public - exposed to other modules)
	di.RegisterToken(c, chainDI.ChainService, func(sr di.ServiceRegistry) *app.ChainService {
		log := sr.Get("logger").(logger.LoggerInterface)
		backends := chainDI.GetBackends(sr)

		ids := make([]uint64, 0, len(backends))
		for id := range backends {
			ids = append(ids, id)
		}
		return app.NewChainService(
			ethereum.NewTokenReader(backends, log),
			ethereum.NewReceiptReader(backends),
			chainDI.GetRelayer(sr),
			ids,
		)
	})

	return nil
}

// Startup initializes the chain module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := chainDI.GetChainService(mono.Services())
	backends := chainDI.GetBackends(mono.Services())

	for _, id := range svc.ChainIDs() {
		backend := backends[id]
		mono.AddHealthCheck("rpc-"+asset.ChainName(id), func(ctx context.Context) error {
			_, err := backend.ChainID(ctx)
			return err
		})
		if closer, ok := backend.(interface{ Close() }); ok {
			mono.OnShutdown(func(context.Context) error {
				closer.Close()
				return nil
			})
		}
	}

	for _, oracle := range chainDI.GetGasOracles(mono.Services()) {
		mono.OnShutdown(func(context.Context) error { return oracle.Close() })
	}

	log.Info(ctx, "chain module started", "chains", svc.ChainIDs(), "relayers", len(chainDI.GetCredentials(mono.Services())))
	return nil
}
