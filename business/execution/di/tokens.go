// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/fd1az/paybridge/business/execution/app"
	"github.com/fd1az/paybridge/business/execution/infra/auth"
	"github.com/fd1az/paybridge/internal/cache"
	"github.com/fd1az/paybridge/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service       = di.NewToken[*app.Service]("execution.Service")
	Authenticator = di.NewToken[*auth.Authenticator]("execution.Authenticator")
)

// Private dependency tokens - internal to execution module
var (
	Claims = di.NewToken[*cache.Cache[string, string]]("execution:claims")
)

// Helper functions for type-safe access
func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}

func GetAuthenticator(c di.ServiceRegistry) *auth.Authenticator {
	return di.GetToken(c, Authenticator)
}

func GetClaims(c di.ServiceRegistry) *cache.Cache[string, string] {
	return di.GetToken(c, Claims)
}
