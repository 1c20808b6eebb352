// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"errors"
	"sync"

	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"github.com/fd1az/paybridge/internal/asset"
	"github.com/fd1az/paybridge/internal/config"
	"github.com/fd1az/paybridge/internal/database"
	"github.com/fd1az/paybridge/internal/di"
	"github.com/fd1az/paybridge/internal/health"
	"github.com/fd1az/paybridge/internal/logger"
	"github.com/fd1az/paybridge/internal/queue"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry

	// DB is nil when the store is MongoDB.
	DB() *gorm.DB
	// Mongo is nil unless the store is MongoDB.
	Mongo() *database.Mongo
	Queue() queue.Queue

	AddHealthCheck(name string, check health.CheckFunc)
	// OnShutdown registers a hook run in reverse registration order on Close.
	OnShutdown(hook func(context.Context) error)
	// Go runs fn until the application context is cancelled.
	Go(name string, fn func(context.Context) error)
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

type namedCheck struct {
	name  string
	check health.CheckFunc
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	assetRegistry *asset.Registry
	container     di.Container

	db    *gorm.DB
	mongo *database.Mongo
	queue queue.Queue

	mu        sync.Mutex
	checks    []namedCheck
	shutdown  []func(context.Context) error
	ctx       context.Context
	cancel    context.CancelFunc
	workers   sync.WaitGroup
	workerErr chan error
}

// New opens the store and the queue and creates the container.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	a := &app{
		config:        cfg,
		logger:        log,
		assetRegistry: asset.DefaultRegistry(),
		container:     di.NewContainer(),
		workerErr:     make(chan error, 1),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if err := a.openQueue(); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	// Register global services
	a.container.Register("config", cfg)
	a.container.Register("logger", log)
	a.container.Register("assetRegistry", a.assetRegistry)
	a.container.Register("queue", a.queue)
	if a.db != nil {
		a.container.Register("db", a.db)
	}
	if a.mongo != nil {
		a.container.Register("mongo", a.mongo)
	}

	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	if a.config.Database.Driver == "mongo" {
		m, err := database.OpenMongo(ctx, a.config.Database)
		if err != nil {
			return err
		}
		a.mongo = m
		a.AddHealthCheck("mongo", m.Ping)
		a.OnShutdown(m.Close)
		a.logger.Info(ctx, "mongo connected", "database", a.config.Database.MongoDatabase)
		return nil
	}

	db, err := database.OpenGorm(a.config.Database, a.logger)
	if err != nil {
		return err
	}
	a.db = db
	a.AddHealthCheck("database", func(ctx context.Context) error { return database.PingGorm(ctx, db) })
	a.OnShutdown(func(context.Context) error { return database.CloseGorm(db) })
	a.logger.Info(ctx, "database opened", "driver", a.config.Database.Driver)
	return nil
}

func (a *app) openQueue() error {
	cfg := a.config.NATS
	if cfg.URL == "" {
		mem := queue.NewMemory(queue.PolicyFor(cfg), cfg.DuplicateWindow, a.logger)
		a.queue = mem
		a.OnShutdown(func(context.Context) error { return mem.Close() })
		a.logger.Warn(context.Background(), "nats url not set, using in-process queue")
		return nil
	}

	nc, err := queue.Connect(cfg, a.logger)
	if err != nil {
		return err
	}
	js, err := queue.NewJetStream(nc, cfg, a.logger)
	if err != nil {
		nc.Close()
		return err
	}
	a.queue = js
	a.AddHealthCheck("nats", js.Ping)
	a.OnShutdown(func(context.Context) error {
		if err := js.Close(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			return err
		}
		return nil
	})
	return nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

func (a *app) DB() *gorm.DB {
	return a.db
}

func (a *app) Mongo() *database.Mongo {
	return a.mongo
}

func (a *app) Queue() queue.Queue {
	return a.queue
}

func (a *app) AddHealthCheck(name string, check health.CheckFunc) {
	a.mu.Lock()
	a.checks = append(a.checks, namedCheck{name: name, check: check})
	a.mu.Unlock()
}

// RegisterHealthChecks hands every collected check to s.
func (a *app) RegisterHealthChecks(s *health.Server) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.checks {
		s.RegisterCheck(c.name, c.check)
	}
}

func (a *app) OnShutdown(hook func(context.Context) error) {
	a.mu.Lock()
	a.shutdown = append(a.shutdown, hook)
	a.mu.Unlock()
}

func (a *app) Go(name string, fn func(context.Context) error) {
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		err := fn(a.ctx)
		if err == nil || errors.Is(err, context.Canceled) || a.ctx.Err() != nil {
			return
		}
		a.logger.Error(a.ctx, "background worker stopped", "worker", name, "error", err)
		select {
		case a.workerErr <- err:
		default:
		}
	}()
}

// Done delivers the first background worker failure.
func (a *app) Done() <-chan error {
	return a.workerErr
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close stops background workers, then runs shutdown hooks in reverse order.
func (a *app) Close(ctx context.Context) error {
	a.cancel()
	a.workers.Wait()

	a.mu.Lock()
	hooks := a.shutdown
	a.shutdown = nil
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
