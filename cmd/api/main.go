package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/ai"
	httptransport "github.com/spec-kit/support-agent/internal/api/http"
	"github.com/spec-kit/support-agent/internal/api/http/handlers"
	"github.com/spec-kit/support-agent/internal/auth"
	"github.com/spec-kit/support-agent/internal/config"
	"github.com/spec-kit/support-agent/internal/events"
	"github.com/spec-kit/support-agent/internal/notify"
	"github.com/spec-kit/support-agent/internal/observability"
	"github.com/spec-kit/support-agent/internal/persistence"
	"github.com/spec-kit/support-agent/internal/repository"
	"github.com/spec-kit/support-agent/internal/service"
	"github.com/spec-kit/support-agent/internal/worker"
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

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	groqClient := ai.NewGroqClient(cfg.Groq)
	emailSender := notify.NewEmailSender(cfg.SMTP)
	smsSender := notify.NewSMSSender(cfg.Twilio)

	chatService := service.NewChatService(groqClient, messageRepo, dispatcher, logger)
	ticketService := service.NewTicketService(ticketRepo, messageRepo, dispatcher, logger)
	notificationService := service.NewNotificationService(emailSender, smsSender, dispatcher, logger)
	worker.StartNotificationWorker(notificationService)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLHours)
	authMiddleware := auth.NewMiddleware(tokenManager)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:      logger,
		Metrics:     metrics,
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.CORS.Origins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(),
		Chat:           handlers.NewChatHandler(chatService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Admin:          handlers.NewAdminHandler(cfg.Auth, tokenManager, notificationService),
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
