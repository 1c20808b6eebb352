// Package di contains dependency injection tokens for the settlement context.
package di

import (
	"github.com/fd1az/paybridge/business/settlement/app"
	"github.com/fd1az/paybridge/business/settlement/infra/consumer"
	"github.com/fd1az/paybridge/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Ledger = di.NewToken[*app.Ledger]("settlement.Ledger")
)

// Private dependency tokens - internal to settlement module
var (
	Store             = di.NewToken[Stores]("settlement:store")
	Publisher         = di.NewToken[app.Publisher]("settlement:publisher")
	SourceTracker     = di.NewToken[*app.Tracker]("settlement:sourceTracker")
	DestTracker       = di.NewToken[*app.Tracker]("settlement:destinationTracker")
	DeadLetterHandler = di.NewToken[*app.DeadLetterHandler]("settlement:deadLetterHandler")
	Runner            = di.NewToken[*consumer.Runner]("settlement:runner")
)

// Stores is implemented by every record store backend.
type Stores interface {
	app.RecordStore
	app.DeadLetterStore
}

// Helper functions for type-safe access
func GetLedger(c di.ServiceRegistry) *app.Ledger {
	return di.GetToken(c, Ledger)
}

func GetStore(c di.ServiceRegistry) Stores {
	return di.GetToken(c, Store)
}

func GetPublisher(c di.ServiceRegistry) app.Publisher {
	return di.GetToken(c, Publisher)
}

func GetSourceTracker(c di.ServiceRegistry) *app.Tracker {
	return di.GetToken(c, SourceTracker)
}

func GetDestTracker(c di.ServiceRegistry) *app.Tracker {
	return di.GetToken(c, DestTracker)
}

func GetDeadLetterHandler(c di.ServiceRegistry) *app.DeadLetterHandler {
	return di.GetToken(c, DeadLetterHandler)
}

func GetRunner(c di.ServiceRegistry) *consumer.Runner {
	return di.GetToken(c, Runner)
}
