package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/helpdesk-go/helpdesk/internal/api/http"
	"github.com/helpdesk-go/helpdesk/internal/api/http/handlers"
	"github.com/helpdesk-go/helpdesk/internal/auth"
	"github.com/helpdesk-go/helpdesk/internal/config"
	"github.com/helpdesk-go/helpdesk/internal/events"
	"github.com/helpdesk-go/helpdesk/internal/observability"
	"github.com/helpdesk-go/helpdesk/internal/persistence"
	"github.com/helpdesk-go/helpdesk/internal/repository"
	"github.com/helpdesk-go/helpdesk/internal/service"
	"github.com/helpdesk-go/helpdesk/internal/storage"
	"github.com/helpdesk-go/helpdesk/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger, cfg.Postgres.SeedData); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	refdataRepo := repository.NewRefDataRepository(pool)
	kbRepo := repository.NewKbRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	fileStore := storage.NewDiskStore(cfg.Storage.UploadDir)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	userService := service.NewUserService(cfg.Auth, userRepo, tokens)
	ticketService := service.NewTicketService(cfg.Lifecycle, service.TicketDependencies{
		TicketRepo:     ticketRepo,
		CommentRepo:    commentRepo,
		AttachmentRepo: attachmentRepo,
		RefDataRepo:    refdataRepo,
		UserRepo:       userRepo,
		FileStore:      fileStore,
		Dispatcher:     dispatcher,
	})
	commentService := service.NewCommentService(commentRepo, ticketRepo, ticketService, dispatcher)
	statsService := service.NewStatsService(cfg.Lifecycle, ticketRepo, redis.Client, logger, nil)
	reportService := service.NewReportService(cfg.Lifecycle, ticketRepo, dispatcher, logger, nil)
	refdataService := service.NewRefDataService(refdataRepo)
	kbService := service.NewKbService(kbRepo, refdataRepo, redis.Client, logger)
	notificationService := service.NewNotificationService(logger, metrics)

	worker.StartNotificationWorker(notificationService, dispatcher)
	reportWorker := worker.NewReportWorker(cfg.Report, reportService, service.JSONRenderer{}, logger)
	if err := reportWorker.Start(); err != nil {
		logger.Fatal("failed to start report worker", zap.Error(err))
	}
	defer reportWorker.Stop()

	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)

	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(userService),
		Tickets:        handlers.NewTicketsHandler(ticketService, commentService),
		Dashboard:      handlers.NewDashboardHandler(statsService, reportService),
		Admin:          handlers.NewAdminHandler(refdataService, userService),
		Kb:             handlers.NewKbHandler(kbService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
