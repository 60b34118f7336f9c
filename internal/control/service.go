// Package control assembles the dispatch service: storage, the retry
// executor, handoff, and the HTTP surfaces, with lifecycle management.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/openmms/mmsd/internal/api"
	"github.com/openmms/mmsd/internal/core/config"
	"github.com/openmms/mmsd/internal/core/domain"
	"github.com/openmms/mmsd/internal/dispatch/executor"
	"github.com/openmms/mmsd/internal/dispatch/handoff"
	"github.com/openmms/mmsd/internal/dispatch/netlease"
	"github.com/openmms/mmsd/internal/dispatch/report"
	"github.com/openmms/mmsd/internal/dispatch/transport"
	"github.com/openmms/mmsd/internal/health"
	"github.com/openmms/mmsd/internal/infra/apn"
	"github.com/openmms/mmsd/internal/infra/carrier"
	"github.com/openmms/mmsd/internal/infra/delivery"
	redisclient "github.com/openmms/mmsd/internal/infra/redis"
	"github.com/openmms/mmsd/internal/infra/storage"
	"github.com/openmms/mmsd/internal/infra/storage/memory"
	"github.com/openmms/mmsd/internal/infra/storage/postgres"
)

// Config holds the application configuration.
type Config struct {
	APIPort    int
	HealthPort int
	Database   postgres.Config
	Redis      redisclient.Config
	Dispatch   config.DispatchConfig
	APN        config.APNConfig
	Handoff    config.HandoffConfig
	Delivery   config.DeliveryConfig
}

// FromAppConfig maps the file configuration onto the service configuration.
func FromAppConfig(app *config.AppConfig) Config {
	return Config{
		APIPort:    app.Server.Port,
		HealthPort: app.Server.HealthPort,
		Database:   app.Database,
		Redis:      app.Redis,
		Dispatch:   app.Dispatch,
		APN:        app.APN,
		Handoff:    app.Handoff,
		Delivery:   app.Delivery,
	}
}

// Service is the main application struct that manages the dispatcher
// lifecycle.
type Service struct {
	cfg          Config
	repo         storage.MessageRepository
	queues       *Queues
	coordinator  *handoff.Coordinator
	bridge       *carrier.Bridge
	apnProvider  *apn.Provider
	apiServer    *api.Server
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
	cancel       context.CancelFunc
}

// NewService creates a Service with all dependencies initialized.
func NewService(cfg Config) (*Service, error) {

	// 1. Initialize Storage
	var repo storage.MessageRepository
	var apnStores []apn.Store
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		repo = postgres.NewMessageRepo(db)
		apnStores = append(apnStores, postgres.NewAPNRepo(db))
		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		repo = memory.NewMessageRepo(store)
		slog.Info("Using Memory storage")
	}
	apnStores = append(apnStores, cfg.APN.StaticStore())

	// 2. Initialize Redis and the handoff registry
	var redisClient *redisclient.Client
	var registry handoff.Registry
	var bridge *carrier.Bridge

	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		registry = redisclient.NewPendingRegistry(redisClient, cfg.Handoff.PendingTTL)
		if cfg.Handoff.Enabled {
			bridge = carrier.NewBridge(redisClient, cfg.Handoff.OfferTimeout)
		}
	} else {
		registry = memory.NewPendingRegistry(cfg.Handoff.PendingTTL)
		if cfg.Handoff.Enabled {
			slog.Warn("Handoff enabled without Redis, no agent channel available")
		}
	}

	// 3. Initialize the dispatch core
	leases := netlease.NewManager(netlease.NewHostConnector(),
		netlease.WithAcquireTimeout(cfg.Dispatch.NetworkAcquireTimeout),
		netlease.WithLinger(cfg.Dispatch.NetworkLinger),
	)
	client := transport.NewHTTPClient(cfg.Dispatch.TransportTimeout, cfg.Dispatch.UserAgent)
	apnProvider := apn.NewProvider(apnStores...)

	resultStore := storage.NewResultStore(repo, cfg.Dispatch.AutoPersist)
	webhook := delivery.NewWebhook(cfg.Delivery.Timeout)
	reporter := report.NewReporter(resultStore, webhook)

	exec := executor.New(executor.Config{
		RetryLimit:     cfg.Dispatch.RetryLimit,
		RetryUnit:      cfg.Dispatch.RetryUnit,
		AttemptTimeout: cfg.Dispatch.AttemptTimeout,
	}, leases, apnProvider, client, reporter)

	queues := NewQueues(exec, repo, cfg.Dispatch.QueueSize)

	// 4. Initialize the handoff coordinator
	var agent handoff.AgentChannel
	if bridge != nil {
		agent = bridge
	}
	coordinator := handoff.NewCoordinator(agent, registry, queues)

	svc := &Service{
		cfg:         cfg,
		repo:        repo,
		queues:      queues,
		coordinator: coordinator,
		bridge:      bridge,
		apnProvider: apnProvider,
		db:          db,
		redisClient: redisClient,
		log:         slog.Default(),
	}

	// 5. Initialize HTTP surfaces
	svc.apiServer = api.NewServer(repo, svc, cfg.APIPort)

	monitor := health.NewMonitor(repo)
	if db != nil {
		monitor.AddCheck("database", true, db.Health)
	}
	if redisClient != nil {
		monitor.AddCheck("redis", false, redisClient.Ping)
	}
	svc.healthServer = health.NewServer(monitor, cfg.HealthPort)

	return svc, nil
}

// Submit routes a freshly built request: the carrier agent gets the first
// claim; otherwise it enters the kind's execution queue.
func (s *Service) Submit(ctx context.Context, req *domain.Request) error {
	if s.coordinator.Intercept(ctx, req) {
		if err := s.repo.UpdateStatus(ctx, req.MessageID, domain.StatusHeld); err != nil {
			s.log.Warn("failed to mark message held",
				"transaction_id", req.TransactionID, "error", err)
		}
		return nil
	}
	s.queues.Enqueue(req)
	return nil
}

// Start starts the service and all its components.
func (s *Service) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.queues.Start(ctx)

	if s.bridge != nil {
		s.log.Info("Starting carrier resume listener")
		go s.bridge.ListenResumes(ctx, s.coordinator)
	}

	go func() {
		s.log.Info("Starting health server", "port", s.cfg.HealthPort)
		if err := s.healthServer.Start(); err != nil {
			s.log.Error("Health server failed", "error", err)
		}
	}()

	go func() {
		s.log.Info("Starting API server", "port", s.cfg.APIPort)
		if err := s.apiServer.Start(); err != nil {
			s.log.Error("API server failed", "error", err)
		}
	}()

	return nil
}

// Stop stops the service.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping dispatcher...")

	if s.cancel != nil {
		s.cancel()
	}

	if err := s.apiServer.Stop(ctx); err != nil {
		s.log.Warn("Failed to stop API server", "error", err)
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}

	return s.healthServer.Stop(ctx)
}
