// Package execution implements the execution bounded context: bearer token
// checks, payer preconditions and the sponsored relay of route envelopes.
package execution

import (
	"context"
	"time"

	chainDI "github.com/fd1az/paybridge/business/chain/di"
	"github.com/fd1az/paybridge/business/execution/app"
	executionDI "github.com/fd1az/paybridge/business/execution/di"
	"github.com/fd1az/paybridge/business/execution/infra/auth"
	routingDI "github.com/fd1az/paybridge/business/routing/di"
	settlementDI "github.com/fd1az/paybridge/business/settlement/di"
	"github.com/fd1az/paybridge/internal/cache"
	"github.com/fd1az/paybridge/internal/config"
	"github.com/fd1az/paybridge/internal/di"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/monolith"
)

const claimSweepInterval = time.Minute

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers all execution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, executionDI.Authenticator, func(sr di.ServiceRegistry) *auth.Authenticator {
		cfg := sr.Get("config").(*config.Config)
		return auth.NewAuthenticator(auth.Config{
			Secret:   cfg.Auth.JWTSecret,
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
		})
	})

	// Used envelopes, by request id
	di.RegisterToken(c, executionDI.Claims, func(sr di.ServiceRegistry) *cache.Cache[string, string] {
		return cache.New[string, string](claimSweepInterval)
	})

	di.RegisterToken(c, executionDI.Service, func(sr di.ServiceRegistry) *app.Service {
		log := sr.Get("logger").(logger.LoggerInterface)

		svc, err := app.NewService(
			executionDI.GetAuthenticator(sr),
			routingDI.GetCodec(sr),
			routingDI.GetProviders(sr),
			chainDI.GetChainService(sr),
			settlementDI.GetLedger(sr),
			executionDI.GetClaims(sr),
			log,
		)
		if err != nil {
			panic("failed to create execution service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup initializes the execution module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	_ = executionDI.GetService(mono.Services())

	claims := executionDI.GetClaims(mono.Services())
	mono.OnShutdown(func(context.Context) error {
		claims.Close()
		return nil
	})

	mono.Logger().Info(ctx, "execution module started")
	return nil
}
