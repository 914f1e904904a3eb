// Package app wires the configured backing stores, export sinks and the run
// lock around one runner.
package app

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/nettle/config"
	"github.com/Ramsey-B/nettle/internal/database"
	"github.com/Ramsey-B/nettle/internal/repositories/entity"
	"github.com/Ramsey-B/nettle/internal/runner"
	"github.com/Ramsey-B/nettle/internal/startup"
	"github.com/Ramsey-B/nettle/pkg/events"
	"github.com/Ramsey-B/nettle/pkg/export"
	"github.com/Ramsey-B/nettle/pkg/graph"
	"github.com/Ramsey-B/nettle/pkg/kafka"
	"github.com/Ramsey-B/nettle/pkg/pipeline"
	"github.com/Ramsey-B/nettle/pkg/redis"
	"github.com/Ramsey-B/nettle/pkg/routes/health"
	"github.com/Ramsey-B/nettle/pkg/similarity"
)

const (
	DependencyDatabase = "database"
	DependencyGraph    = "graph"
	DependencyKafka    = "kafka"
	DependencyRedis    = "redis"
)

type App struct {
	cfg     *config.Config
	logger  ectologger.Logger
	startup *startup.Startup
	health  *health.Checker

	settings pipeline.Settings
	runner   *runner.Runner

	db       database.DB
	entities *entity.Repository
	graph    *graph.Client
	producer *kafka.Producer
	redis    *redis.Client
}

// New resolves the match settings and registers a startup dependency for
// every enabled backing store. Nothing connects until Start.
func New(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (*App, error) {
	raw, err := config.LoadMatchSettings(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		startup:  startup.NewStartup(logger, cfg.StartupMaxAttempts),
		health:   health.NewChecker(cfg.Version),
		settings: pipeline.ResolveSettings(ctx, raw, similarity.DefaultRegistry(), logger),
	}

	if cfg.DatabaseEnabled {
		a.startup.AddDependency(a.databaseDependency())
	}
	if cfg.GraphEnabled {
		a.startup.AddDependency(a.graphDependency())
	}
	if cfg.KafkaEnabled {
		a.startup.AddDependency(a.kafkaDependency())
	}
	if cfg.RedisEnabled {
		a.startup.AddDependency(a.redisDependency())
	}

	return a, nil
}

// NewMigrator registers only the database. Starting it applies the migrations.
func NewMigrator(cfg *config.Config, logger ectologger.Logger) *App {
	a := &App{
		cfg:     cfg,
		logger:  logger,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
		health:  health.NewChecker(cfg.Version),
	}
	a.startup.AddDependency(a.databaseDependency())
	return a
}

// Start connects every dependency and builds the runner over the enabled sinks
func (a *App) Start(ctx context.Context) error {
	if err := a.startup.Start(ctx); err != nil {
		return err
	}

	var sinks []export.Sink
	if a.entities != nil {
		sinks = append(sinks, a.entities)
	}
	if a.graph != nil {
		sinks = append(sinks, graph.NewExporter(a.graph, a.logger))
	}
	if a.producer != nil {
		sinks = append(sinks, events.NewEmitter(a.producer, a.logger))
	}

	exporter := export.NewExporter(a.logger, sinks...)
	opts := []runner.Option{runner.WithExporter(exporter)}
	if a.redis != nil {
		opts = append(opts, runner.WithLocker(
			redis.NewLocker(a.redis, ""),
			time.Duration(a.cfg.RunLockTTLSeconds)*time.Second,
			time.Duration(a.cfg.RunLockWaitSeconds)*time.Second,
		))
	}
	a.runner = runner.New(a.logger, a.settings, opts...)

	a.health.SetReady(true)
	a.logger.WithFields(map[string]any{
		"workers": a.settings.Workers,
		"stages":  a.settings.StageNames(),
		"sinks":   exporter.Sinks(),
	}).Info("Application started")
	return nil
}

// Stop closes every started dependency
func (a *App) Stop(ctx context.Context) error {
	a.health.SetReady(false)
	return a.startup.Stop(ctx)
}

// Runner is available after Start
func (a *App) Runner() *runner.Runner {
	return a.runner
}

func (a *App) Health() *health.Checker {
	return a.health
}

func (a *App) Settings() pipeline.Settings {
	return a.settings
}

// Entities is nil unless the database is enabled
func (a *App) Entities() *entity.Repository {
	return a.entities
}

func (a *App) databaseDependency() *startup.Dependency {
	return &startup.Dependency{
		Name: DependencyDatabase,
		OnStart: func(ctx context.Context) error {
			db, err := database.Connect(ctx, a.cfg.DatabaseDriver, a.cfg.DatabaseDSN(), database.PoolConfig{
				MaxOpenConns:    a.cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    a.cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: a.cfg.DatabaseConnMaxLifetime,
			}, a.logger)
			if err != nil {
				return err
			}

			migrations := database.NewMigrationService(a.logger, &database.MigrationConfig{
				MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
				Version:             uint(a.cfg.DatabaseMigrationVersion),
				Force:               a.cfg.DatabaseMigrationForce,
				AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
			})
			if err := migrations.MigratePostgres(db); err != nil {
				_ = db.Close()
				return err
			}

			a.db = db
			a.entities = entity.NewRepository(db, a.logger)
			a.health.AddCheck(DependencyDatabase, a.entities)
			return nil
		},
		OnStop: func(context.Context) error {
			if a.db == nil {
				return nil
			}
			return a.db.Close()
		},
	}
}

func (a *App) graphDependency() *startup.Dependency {
	return &startup.Dependency{
		Name: DependencyGraph,
		OnStart: func(ctx context.Context) error {
			client, err := graph.NewClient(graph.Config{
				Host:     a.cfg.GraphDBHost,
				Port:     a.cfg.GraphDBPort,
				Username: a.cfg.GraphDBUser,
				Password: a.cfg.GraphDBPassword,
			}, a.logger)
			if err != nil {
				return err
			}
			if err := client.VerifyConnectivity(ctx); err != nil {
				_ = client.Close(ctx)
				return err
			}

			a.graph = client
			a.health.AddCheck(DependencyGraph, health.PingFunc(client.VerifyConnectivity))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if a.graph == nil {
				return nil
			}
			return a.graph.Close(ctx)
		},
	}
}

func (a *App) kafkaDependency() *startup.Dependency {
	return &startup.Dependency{
		Name: DependencyKafka,
		OnStart: func(context.Context) error {
			a.producer = kafka.NewProducer(kafka.ProducerConfig{
				Brokers:      a.cfg.KafkaBrokers,
				Topic:        a.cfg.KafkaOutputTopic,
				BatchSize:    a.cfg.KafkaBatchSize,
				BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
				RequiredAcks: a.cfg.KafkaRequiredAcks,
				Compression:  a.cfg.KafkaCompression,
			}, a.logger)
			return nil
		},
		OnStop: func(context.Context) error {
			if a.producer == nil {
				return nil
			}
			return a.producer.Close()
		},
	}
}

func (a *App) redisDependency() *startup.Dependency {
	return &startup.Dependency{
		Name: DependencyRedis,
		OnStart: func(context.Context) error {
			client, err := redis.NewClient(redis.Config{
				Host:     a.cfg.RedisHost,
				Port:     a.cfg.RedisPort,
				Password: a.cfg.RedisPassword,
				DB:       a.cfg.RedisDB,
			}, a.logger)
			if err != nil {
				return err
			}

			a.redis = client
			a.health.AddCheck(DependencyRedis, client)
			return nil
		},
		OnStop: func(context.Context) error {
			if a.redis == nil {
				return nil
			}
			return a.redis.Close()
		},
	}
}
