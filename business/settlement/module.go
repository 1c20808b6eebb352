// Package settlement implements the settlement bounded context: the record
// ledger, the source and destination trackers and the dead-letter sink.
package settlement

import (
	"context"
	"time"

	"gorm.io/gorm"

	chainDI "github.com/fd1az/paybridge/business/chain/di"
	routingDI "github.com/fd1az/paybridge/business/routing/di"
	"github.com/fd1az/paybridge/business/settlement/app"
	settlementDI "github.com/fd1az/paybridge/business/settlement/di"
	"github.com/fd1az/paybridge/business/settlement/infra/consumer"
	"github.com/fd1az/paybridge/business/settlement/infra/notify"
	"github.com/fd1az/paybridge/business/settlement/infra/publisher"
	"github.com/fd1az/paybridge/business/settlement/infra/store"
	"github.com/fd1az/paybridge/internal/config"
	"github.com/fd1az/paybridge/internal/database"
	"github.com/fd1az/paybridge/internal/di"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/monolith"
	"github.com/fd1az/paybridge/internal/queue"
)

const migrateTimeout = 30 * time.Second

// Module implements the settlement bounded context.
type Module struct{}

// RegisterServices registers all settlement services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Record and dead-letter store, by configured driver
	di.RegisterToken(c, settlementDI.Store, func(sr di.ServiceRegistry) settlementDI.Stores {
		cfg := sr.Get("config").(*config.Config)
		ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
		defer cancel()

		if cfg.Database.Driver == "mongo" {
			s := store.NewMongoStore(sr.Get("mongo").(*database.Mongo).DB)
			if err := s.CreateIndexes(ctx); err != nil {
				panic("failed to create settlement indexes: " + err.Error())
			}
			return s
		}
		s := store.NewGormStore(sr.Get("db").(*gorm.DB))
		if err := s.Migrate(ctx); err != nil {
			panic("failed to migrate settlement tables: " + err.Error())
		}
		return s
	})

	di.RegisterToken(c, settlementDI.Publisher, func(sr di.ServiceRegistry) app.Publisher {
		cfg := sr.Get("config").(*config.Config)
		return publisher.New(sr.Get("queue").(queue.Queue), subjects(cfg))
	})

	// Register Ledger (public - execution opens settlement through it)
	di.RegisterToken(c, settlementDI.Ledger, func(sr di.ServiceRegistry) *app.Ledger {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewLedger(settlementDI.GetStore(sr), settlementDI.GetPublisher(sr), log)
	})

	di.RegisterToken(c, settlementDI.SourceTracker, func(sr di.ServiceRegistry) *app.Tracker {
		probe := app.NewSourceProbe(chainDI.GetChainService(sr), routingDI.GetProviders(sr))
		return newTracker(sr, probe)
	})

	di.RegisterToken(c, settlementDI.DestTracker, func(sr di.ServiceRegistry) *app.Tracker {
		probe := app.NewDestinationProbe(chainDI.GetChainService(sr), routingDI.GetProviders(sr))
		return newTracker(sr, probe)
	})

	di.RegisterToken(c, settlementDI.DeadLetterHandler, func(sr di.ServiceRegistry) *app.DeadLetterHandler {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		alerter, err := notify.NewChat(cfg.Alerts.WebhookURL, cfg.Alerts.Channel, cfg.Alerts.Timeout, log)
		if err != nil {
			panic("failed to create alerter: " + err.Error())
		}
		s := settlementDI.GetStore(sr)
		h, err := app.NewDeadLetterHandler(s, s, alerter, log)
		if err != nil {
			panic("failed to create dead-letter handler: " + err.Error())
		}
		return h
	})

	di.RegisterToken(c, settlementDI.Runner, func(sr di.ServiceRegistry) *consumer.Runner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return consumer.New(
			consumer.Config{
				Subjects:          subjects(cfg),
				DeadLetterSubject: cfg.NATS.DeadLetterSubject,
				Workers:           cfg.NATS.Workers,
			},
			sr.Get("queue").(queue.Queue),
			[]consumer.StageTracker{settlementDI.GetSourceTracker(sr), settlementDI.GetDestTracker(sr)},
			settlementDI.GetDeadLetterHandler(sr),
			log,
		)
	})

	return nil
}

func newTracker(sr di.ServiceRegistry, probe app.Probe) *app.Tracker {
	cfg := sr.Get("config").(*config.Config)
	log := sr.Get("logger").(logger.LoggerInterface)

	notifier, err := notify.NewWebhook(cfg.Tracker.WebhookTimeout, log)
	if err != nil {
		panic("failed to create webhook notifier: " + err.Error())
	}
	tc := app.DefaultTrackerConfig()
	if cfg.Tracker.PollAttempts > 0 {
		tc.Attempts = cfg.Tracker.PollAttempts
	}
	if cfg.Tracker.PollInterval > 0 {
		tc.Interval = cfg.Tracker.PollInterval
	}
	t, err := app.NewTracker(tc, probe, settlementDI.GetStore(sr), notifier, settlementDI.GetPublisher(sr), log)
	if err != nil {
		panic("failed to create " + string(probe.Stage()) + " tracker: " + err.Error())
	}
	return t
}

func subjects(cfg *config.Config) publisher.Subjects {
	return publisher.Subjects{Source: cfg.NATS.SourceSubject, Destination: cfg.NATS.DestinationSubject}
}

// Startup initializes the settlement module and, in worker mode, its consumers.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	_ = settlementDI.GetLedger(mono.Services())

	mode := mono.Config().App.Mode
	if mode != config.ModeAll && mode != config.ModeWorker {
		mono.Logger().Info(ctx, "settlement module started", "consumers", false)
		return nil
	}

	runner := settlementDI.GetRunner(mono.Services())
	mono.Go("settlement-consumers", runner.Run)
	mono.Logger().Info(ctx, "settlement module started", "consumers", true, "workers", mono.Config().NATS.Workers)
	return nil
}
