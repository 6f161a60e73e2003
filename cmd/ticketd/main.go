package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/guildkit/ticketd/internal/api/http"
	"github.com/guildkit/ticketd/internal/api/http/handlers"
	"github.com/guildkit/ticketd/internal/auth"
	"github.com/guildkit/ticketd/internal/cache"
	"github.com/guildkit/ticketd/internal/clock"
	"github.com/guildkit/ticketd/internal/config"
	"github.com/guildkit/ticketd/internal/events"
	"github.com/guildkit/ticketd/internal/observability"
	"github.com/guildkit/ticketd/internal/persistence"
	"github.com/guildkit/ticketd/internal/repository"
	"github.com/guildkit/ticketd/internal/service"
	"github.com/guildkit/ticketd/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var backend cache.Backend
	var redisConn *persistence.Redis
	if cfg.Cache.Backend == "redis" {
		redisConn = persistence.NewRedis(cfg.Redis, logger)
		defer redisConn.Close()
		backend = cache.NewRedisBackend(redisConn.Client)
	} else {
		backend = cache.NewMemoryBackend()
	}

	pool := pg.PoolHandle()
	guildRepo := repository.NewGuildRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	panelRepo := repository.NewPanelRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	participantRepo := repository.NewParticipantRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	blacklistRepo := repository.NewBlacklistRepository(pool)
	staffStatsRepo := repository.NewStaffStatsRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	securityRepo := repository.NewSecurityRepository(pool)
	automationRepo := repository.NewAutomationRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)
	principalRepo := repository.NewStaffPrincipalRepository(pool)

	clk := clock.New()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	ticketService := service.NewTicketService(cfg.Security, service.TicketDependencies{
		GuildRepo:       guildRepo,
		CategoryRepo:    categoryRepo,
		PanelRepo:       panelRepo,
		TicketRepo:      ticketRepo,
		ParticipantRepo: participantRepo,
		EventRepo:       eventRepo,
		BlacklistRepo:   blacklistRepo,
		StaffRepo:       staffStatsRepo,
		AuditRepo:       auditRepo,
		Cache:           backend,
		Dispatcher:      dispatcher,
		Clock:           clk,
		Logger:          logger,
	})
	securityService := service.NewSecurityService(cfg.Security, securityRepo, auditRepo, backend, dispatcher, clk, logger)
	automationService := service.NewAutomationService(automationRepo, ticketRepo, ticketService, dispatcher, metrics, clk, logger, cfg.App.SystemActorID)
	analyticsService := service.NewAnalyticsService(analyticsRepo, staffStatsRepo)

	notificationService := service.NewNotificationService(cfg.Notification, logger)
	notificationService.Register(dispatcher)

	tokens := auth.NewTokenManager(cfg.Auth, clk)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(pg, redisConn, cfg.App.Version),
		Staff:      handlers.NewStaffHandler(principalRepo, tokens, hasher),
		Tickets:    handlers.NewTicketsHandler(ticketService),
		Automation: handlers.NewAutomationHandler(automationService, ticketService),
		Security:   handlers.NewSecurityHandler(securityService),
		Analytics:  handlers.NewAnalyticsHandler(analyticsService),
		Tokens:     tokens,
	})

	poller := worker.NewAutomationWorker(automationService, cfg.Automation.PollInterval(), logger)
	poller.Start(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	poller.Wait()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
