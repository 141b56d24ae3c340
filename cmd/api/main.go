package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/locate-service/internal/api/http"
	"github.com/spec-kit/locate-service/internal/api/http/handlers"
	"github.com/spec-kit/locate-service/internal/auth"
	"github.com/spec-kit/locate-service/internal/compliance"
	"github.com/spec-kit/locate-service/internal/config"
	"github.com/spec-kit/locate-service/internal/events"
	"github.com/spec-kit/locate-service/internal/lifecycle"
	"github.com/spec-kit/locate-service/internal/observability"
	"github.com/spec-kit/locate-service/internal/persistence"
	"github.com/spec-kit/locate-service/internal/repository"
	"github.com/spec-kit/locate-service/internal/service"
	"github.com/spec-kit/locate-service/internal/validation"
	"github.com/spec-kit/locate-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calendar, err := cfg.Compliance.LoadCalendar()
	if err != nil {
		logger.Fatal("failed to load holiday calendar", zap.Error(err))
	}
	loc, err := cfg.Compliance.Location()
	if err != nil {
		logger.Fatal("failed to load compliance time zone", zap.Error(err))
	}
	logger.Info("holiday calendar loaded", zap.Int("holidays", calendar.Len()), zap.String("tz", loc.String()))

	deriver := compliance.NewDeriver(calendar, compliance.Policy{
		WaitBusinessDays: cfg.Compliance.WaitBusinessDays,
		ValidityDays:     cfg.Compliance.ValidityDays,
		ExpiringWindow:   cfg.Compliance.ExpiringWindow(),
	})
	engine := validation.NewEngine(validation.Options{
		Region: &validation.Region{
			Name:   cfg.Region.Name,
			MinLat: cfg.Region.MinLat,
			MaxLat: cfg.Region.MaxLat,
			MinLng: cfg.Region.MinLng,
			MaxLng: cfg.Region.MaxLng,
		},
		ConfidenceFloor: cfg.Validation.ConfidenceFloor,
	})
	machine := lifecycle.NewMachine(engine, deriver)

	var ticketRepo repository.TicketRepository
	ticketRepo, err = repository.NewFileTicketRepository(cfg.Storage.DataDir)
	if err != nil {
		logger.Fatal("failed to open ticket store", zap.Error(err))
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	if redis.Enabled() {
		cache := repository.NewRedisTicketCache(redis.Client, cfg.Redis.CacheTTL())
		ticketRepo = repository.NewCachedTicketRepository(ticketRepo, cache, logger)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	clock := func() time.Time { return time.Now().In(loc) }
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Machine:    machine,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Clock:      clock,
	})

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authService := service.NewAuthService(cfg.Auth, tokenManager)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	watcher := worker.NewExpiryWatcher(ticketService, dispatcher, logger, clock)
	notificationWorker := worker.NewNotificationWorker(notificationService, watcher, cfg.Worker.ScanInterval())
	notificationWorker.Start(ctx)

	var limiter *httptransport.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = httptransport.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go limiter.Cleanup(ctx)
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), limiter)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Storage.DataDir, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	notificationWorker.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
