package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"swift/internal/app"
	"swift/internal/auth"
	"swift/internal/config"
	"swift/internal/handler"
	"swift/internal/logger"
	internalRedis "swift/internal/redis"
	"swift/internal/repository/flatfile"
	"swift/internal/service"
)

const ledgerLockTTL = 30 * time.Second

func main() {
	// Load configuration.
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	appLog := logger.New(cfg.Log.Service, cfg.Log.Level)
	if cfg.Auth.JWTSecretGenerated {
		appLog.Warn(logger.Entry{
			Action:  "jwt_secret_generated",
			Message: "AUTH_JWT_SECRET unset, using a random key; sessions end on restart",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so redis can be instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	// Redis is optional: it backs the report cache, idempotency replay and the ledger lock.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Connected to Redis")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Refuse to share the ledger with another instance.
	lockCtx, stopLock := context.WithCancel(context.Background())
	defer stopLock()
	if redisClient != nil {
		lock := internalRedis.NewLedgerLock(redisClient, cfg.Ledger.AccountsPath(), ledgerLockTTL)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			log.Fatalf("failed to acquire ledger lock: %v", err)
		}
		if !ok {
			log.Fatalf("ledger %s is held by another instance", cfg.Ledger.AccountsPath())
		}
		defer func() { _ = lock.Release(context.Background()) }()

		go lock.KeepAlive(lockCtx, func(err error) {
			appLog.Error(logger.Entry{
				Action:  "ledger_lock_lost",
				Message: "ledger lock lost, shutting down",
				Error:   logger.Err(err),
			})
			select {
			case quit <- syscall.SIGTERM:
			default:
			}
		})
	}

	// Wire dependencies.
	server, err := wireServer(ctx, redisClient, nrApp, cfg, appLog)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	<-quit
	log.Println("Shutting down server...")
	stopLock()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	if nrApp != nil {
		nrApp.Shutdown(cfg.Server.ShutdownTimeout)
	}

	log.Println("Server exited")
}

// wireServer loads the ledger, wires all dependencies and returns the HTTP server.
func wireServer(
	ctx context.Context,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	cfg *config.Config,
	appLog *logger.Logger,
) (*http.Server, error) {
	// Initialize flat-file repositories.
	accountLedger := flatfile.NewAccountLedger(cfg.Ledger.AccountsPath(), appLog)
	receiptLog := flatfile.NewReceiptLog(cfg.Ledger.ReceiptsPath(), appLog)
	auditLog := flatfile.NewAuditLog(cfg.Ledger.AuditPath())

	// Report cache is skipped without redis.
	var reportCache service.ReportCache
	if redisClient != nil {
		reportCache = internalRedis.NewReportCache(redisClient, cfg.Redis.CacheTTL)
	}

	// Initialize services.
	notificationService := service.NewNotificationService(appLog)
	fareService := service.NewFareService(cfg.Pricing.InitialSurge, appLog)
	accountService := service.NewAccountService(accountLedger, auth.NewBcryptHasher(0), appLog)
	receiptService := service.NewReceiptService(receiptLog, reportCache, notificationService, appLog)
	registry := service.NewTripRegistry(fareService, accountService, receiptService, notificationService, appLog)
	revenueService := service.NewRevenueService(receiptLog, reportCache, appLog)
	auditService := service.NewAuditService(auditLog, appLog)

	if err := accountService.Load(ctx); err != nil {
		return nil, err
	}
	if err := accountService.Bootstrap(ctx, cfg.Auth.BootstrapOperator, cfg.Auth.BootstrapPassword); err != nil {
		return nil, err
	}

	tokens := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Initialize handlers.
	authHandler := handler.NewAuthHandler(accountService, tokens, auditService, cfg.Auth.AllowOperatorSignup)
	fareHandler := handler.NewFareHandler(fareService)
	passengerHandler := handler.NewPassengerHandler(registry, fareService, revenueService, auditService)
	driverHandler := handler.NewDriverHandler(registry, accountService, receiptService, revenueService, auditService)
	operatorHandler := handler.NewOperatorHandler(accountService, registry, fareService, revenueService, auditService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		AuthHandler:      authHandler,
		FareHandler:      fareHandler,
		PassengerHandler: passengerHandler,
		DriverHandler:    driverHandler,
		OperatorHandler:  operatorHandler,
		Tokens:           tokens,
		Accounts:         accountService,
		RedisClient:      redisClient,
		NewRelicApp:      nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
