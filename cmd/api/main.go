package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/sunenergyxt/service-portal/internal/api/http"
	"github.com/sunenergyxt/service-portal/internal/api/http/handlers"
	"github.com/sunenergyxt/service-portal/internal/auth"
	"github.com/sunenergyxt/service-portal/internal/config"
	"github.com/sunenergyxt/service-portal/internal/events"
	"github.com/sunenergyxt/service-portal/internal/observability"
	"github.com/sunenergyxt/service-portal/internal/persistence"
	"github.com/sunenergyxt/service-portal/internal/repository"
	"github.com/sunenergyxt/service-portal/internal/seed"
	"github.com/sunenergyxt/service-portal/internal/service"
	"github.com/sunenergyxt/service-portal/internal/worker"
	"github.com/sunenergyxt/service-portal/internal/workflow"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("service stopped", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Seed.File != "" {
		fx, err := seed.Read(cfg.Seed.File)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, store, fx, cfg.Auth.BcryptCost, logger); err != nil {
			return err
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	engine := workflow.NewEngine()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:     store.Users(),
		TokenManager: tokens,
		Logger:       logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Engine:     engine,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	partnerService := service.NewPartnerService(service.PartnerDependencies{
		Store:      store,
		Engine:     engine,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	registrationService := service.NewRegistrationService(service.RegistrationDependencies{
		Store:           store,
		Dispatcher:      dispatcher,
		Logger:          logger,
		Metrics:         metrics,
		BcryptCost:      cfg.Auth.BcryptCost,
		DefaultPassword: cfg.Auth.DefaultPartnerPassword,
	})
	userService := service.NewUserService(service.UserDependencies{
		Store:           store,
		Logger:          logger,
		BcryptCost:      cfg.Auth.BcryptCost,
		DefaultPassword: cfg.Auth.DefaultPartnerPassword,
	})

	var relay *worker.RedisRelay
	if redis.Enabled() {
		relay = worker.NewRedisRelay(redis.Client, cfg.Redis.EventsChannel, logger)
	}
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(dispatcher, notifications, relay)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, store, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Companies:      handlers.NewCompaniesHandler(partnerService),
		Registrations:  handlers.NewRegistrationsHandler(registrationService),
		Users:          handlers.NewUsersHandler(authService, userService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Users()),
		Metrics:        metrics,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Driver))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openStore selects the entity store backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	if cfg.Store.Driver != config.StoreDriverPostgres {
		logger.Info("using in-memory store")
		return repository.NewMemoryStore(), func() {}, nil
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			pg.Close()
			return nil, nil, err
		}
	}
	return repository.NewPostgresStore(pg.Pool), pg.Close, nil
}
