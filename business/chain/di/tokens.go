// Package di contains dependency injection tokens for the chain context.
package di

import (
	"github.com/fd1az/paybridge/business/chain/app"
	"github.com/fd1az/paybridge/business/chain/domain"
	"github.com/fd1az/paybridge/business/chain/infra/ethereum"
	"github.com/fd1az/paybridge/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ChainService = di.NewToken[*app.ChainService]("chain.ChainService")
)

// Private dependency tokens - internal to chain module
var (
	Backends    = di.NewToken[ethereum.Backends]("chain:backends")
	Credentials = di.NewToken[map[uint64]domain.RelayerCredentials]("chain:credentials")
	GasOracles  = di.NewToken[map[uint64]*ethereum.GasOracle]("chain:gasOracles")
	Relayer     = di.NewToken[*ethereum.Relayer]("chain:relayer")
)

// Helper functions for type-safe access
func GetChainService(c di.ServiceRegistry) *app.ChainService {
	return di.GetToken(c, ChainService)
}

func GetBackends(c di.ServiceRegistry) ethereum.Backends {
	return di.GetToken(c, Backends)
}

func GetCredentials(c di.ServiceRegistry) map[uint64]domain.RelayerCredentials {
	return di.GetToken(c, Credentials)
}

func GetGasOracles(c di.ServiceRegistry) map[uint64]*ethereum.GasOracle {
	return di.GetToken(c, GasOracles)
}

func GetRelayer(c di.ServiceRegistry) *ethereum.Relayer {
	return di.GetToken(c, Relayer)
}
