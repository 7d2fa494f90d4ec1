package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dispatch/internal/app"
	"dispatch/internal/broadcast"
	"dispatch/internal/config"
	"dispatch/internal/disburse"
	"dispatch/internal/handler"
	"dispatch/internal/logger"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
	"dispatch/internal/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// New Relic first so the database and Redis clients can be instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warn("new relic init failed", zap.Error(err))
			nrApp = nil
		} else {
			log.Info("new relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()
	log.Info("connected to postgresql")

	if err := app.Migrate(ctx, db); err != nil {
		log.Fatal("migrate schema", zap.Error(err))
	}

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatal("connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("connected to redis")

	hub := broadcast.NewHub()
	publishers := broadcast.Multi{hub, broadcast.NewRedisPublisher(redisClient, log)}
	if cfg.Broker.URL != "" {
		amqpPub, err := broadcast.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange, log)
		if err != nil {
			log.Warn("amqp publisher disabled", zap.Error(err))
		} else {
			defer amqpPub.Close()
			publishers = append(publishers, amqpPub)
			log.Info("amqp publisher enabled", zap.String("exchange", cfg.Broker.Exchange))
		}
	}

	server := wireServer(db, redisClient, hub, publishers, nrApp, cfg, log)

	go func() {
		log.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	hub *broadcast.Hub,
	publisher broadcast.Publisher,
	nrApp *newrelic.Application,
	cfg *config.Config,
	log *zap.Logger,
) *http.Server {
	// Redis stores.
	availabilityStore := internalRedis.NewAvailabilityStore(redisClient, cfg.Dispatch.HeartbeatTTL)
	lockStore := internalRedis.NewLockStore(redisClient)

	// Repositories.
	rideRepo := postgres.NewRideRepository(db)
	riderRepo := postgres.NewRiderRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	waitingRepo := postgres.NewWaitingRepository(db)
	payoutRepo := postgres.NewPayoutRepository(db)

	// Services.
	calculator := service.NewFareCalculator(cfg.Pricing)
	locator := service.NewDriverLocator(availabilityStore, lockStore, cfg.Dispatch.SearchRadiusKm)
	coordinator := service.NewAssignmentCoordinator(rideRepo, locator, publisher, cfg.Dispatch.AcceptWindow)
	policy := service.NewCancellationPolicy(
		rideRepo, riderRepo, publisher,
		cfg.Dispatch.CancelWindow, cfg.Dispatch.MaxDailyCancels, cfg.Dispatch.SuspensionDuration,
	)
	rideService := service.NewRideService(rideRepo, coordinator, policy, calculator, publisher)
	waitingService := service.NewWaitingService(waitingRepo, rideRepo, calculator, publisher)
	processor := disburse.NewClient(cfg.Disburse, log)
	settlementService := service.NewSettlementService(rideRepo, payoutRepo, driverRepo, processor, calculator, log)

	// Handlers.
	rideHandler := handler.NewRideHandler(rideService, waitingService, policy, coordinator)
	driverHandler := handler.NewDriverHandler(rideService, coordinator, driverRepo, availabilityStore)
	settlementHandler := handler.NewSettlementHandler(settlementService)
	webhookHandler := handler.NewWebhookHandler(settlementService, cfg.Disburse.WebhookSecret, log)
	gateway := ws.NewGateway(hub, log)

	router := app.NewRouter(app.RouterDeps{
		RideHandler:       rideHandler,
		DriverHandler:     driverHandler,
		SettlementHandler: settlementHandler,
		WebhookHandler:    webhookHandler,
		WSGateway:         gateway,
		RedisClient:       redisClient,
		NewRelicApp:       nrApp,
		JWTSecret:         cfg.Auth.JWTSecret,
		RateLimitPerSec:   cfg.Server.RateLimitPerSec,
		RateLimitBurst:    cfg.Server.RateLimitBurst,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
