// Package di contains dependency injection tokens for the gateway context.
package di

import (
	"github.com/fd1az/paybridge/business/gateway/infra/rest"
	"github.com/fd1az/paybridge/internal/di"
)

// Private dependency tokens - internal to gateway module
var (
	Server = di.NewToken[*rest.Server]("gateway:server")
)

func GetServer(c di.ServiceRegistry) *rest.Server {
	return di.GetToken(c, Server)
}
