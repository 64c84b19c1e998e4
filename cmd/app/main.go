package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"brokerdesk/configs"
	"brokerdesk/internal/adapter/docstore"
	"brokerdesk/internal/adapter/mailer"
	"brokerdesk/internal/database"
	delivery "brokerdesk/internal/delivery/http"
	"brokerdesk/internal/infra"
	"brokerdesk/internal/logging"
	custommiddleware "brokerdesk/internal/middleware"
	"brokerdesk/internal/repository"
	"brokerdesk/internal/service"
	"brokerdesk/internal/usecase"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg := configs.Load()
	logger := logging.New(cfg.Logging)

	// Initialize context
	ctx := context.Background()

	// Initialize database
	db, err := infra.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	txRepo := repository.NewCashTransactionRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Notification gateway: API provider first, SMTP fallback. Providers
	// are constructed once here and passed down; nothing is lazy or global.
	smtpDialer := mailer.NewNetDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass)
	notifier := mailer.NewGateway(logger,
		mailer.NewAPIProvider(cfg.Mail.APIURL, cfg.Mail.APIKey, cfg.Mail.From),
		mailer.NewSMTPProvider(smtpDialer, cfg.Mail.From, logger),
	)

	// Document storage for KYC uploads
	docs, err := docstore.NewLocalStore(cfg.Uploads.Dir, cfg.Uploads.BaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize document store: %v", err)
	}

	// Initialize services
	balances := service.NewBalanceService(txRepo, orderRepo, userRepo)
	approvals := usecase.NewApprovalService(userRepo, notifier, logger)
	tokens := custommiddleware.NewTokenManager(cfg.Auth.JWTSecret)

	// Ledger maintenance scheduler
	scheduler := infra.NewScheduler(txRepo, cfg.Ledger.PendingTxMaxAge)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Initialize HTTP server
	e := echo.New()
	e.HideBanner = true

	delivery.SetupRoutes(e, &delivery.RouterConfig{
		AuthHandler:      delivery.NewAuthHandler(userRepo, docs, notifier, tokens, logger, cfg.Server.IsProduction()),
		DashboardHandler: delivery.NewDashboardHandler(balances, txRepo, orderRepo, settingsRepo),
		AdminHandler:     delivery.NewAdminHandler(approvals, balances, userRepo, txRepo, orderRepo, settingsRepo),
		Tokens:           tokens,
		Server:           cfg.Server,
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Brokerdesk API starting on %s", addr)
	log.Printf("Environment: %s", cfg.Server.Env)

	srv := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("[OK] Server exited gracefully")
}
