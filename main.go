package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fastaid/config"
	"fastaid/cron"
	"fastaid/database"
	"fastaid/database/repository"
	"fastaid/handlers"
	"fastaid/middleware"
	"fastaid/routes"
	"fastaid/services/booking"
	"fastaid/services/fleet"
	"fastaid/services/ledger"
	"fastaid/services/locator"
	"fastaid/services/notification"
	"fastaid/services/payment"
	"fastaid/services/propagation"
	"fastaid/services/routing"
	"fastaid/services/stats"
	"fastaid/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func openStore(logger *zap.Logger) *repository.Store {
	var (
		store *repository.Store
		err   error
	)
	switch config.AppConfig.StoreBackend {
	case "memory":
		store = repository.NewMemoryStore()
	case "postgres":
		database.InitPostgres()
		store, err = repository.NewPostgresStore(database.PostgresDB)
	default:
		database.InitDB()
		store, err = repository.NewMongoStore(database.MongoDatabase())
	}
	if err != nil {
		logger.Fatal("main: failed to prepare store", zap.String("backend", config.AppConfig.StoreBackend), zap.Error(err))
	}
	logger.Info("Store ready", zap.String("backend", config.AppConfig.StoreBackend))
	return store
}

func openBus(logger *zap.Logger) propagation.Bus {
	switch config.AppConfig.PropagationBackend {
	case "redis":
		return propagation.NewRedisBus(utils.GetPubSubClient(), logger)
	case "amqp":
		bus, err := propagation.NewAMQPBus(config.AppConfig.AMQPURL, logger)
		if err != nil {
			logger.Fatal("main: failed to connect to AMQP", zap.Error(err))
		}
		return bus
	default:
		return propagation.NewMemoryBus()
	}
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	store := openStore(logger)
	cache := utils.GetCacheClient()
	redisClients := []*redis.Client{cache}

	bus := openBus(logger)
	if config.AppConfig.PropagationBackend == "redis" {
		redisClients = append(redisClients, utils.GetPubSubClient())
	}
	propagator := propagation.NewPropagator(bus, config.AppConfig.PropagationWorkers, config.AppConfig.PropagationQueueSize, utils.Component("propagation"))
	propagator.Start()

	utils.StartHealthMonitor(rootCtx, redisClients, store)

	// services.
	router := routing.NewOSRMRouter(config.AppConfig.RoutingBaseURL, config.AppConfig.RoutingTimeout, cache, config.AppConfig.RouteCacheTTL, utils.Component("routing"))
	loc := locator.NewLocator(store.Resources, config.AppConfig.SearchRadiusMeters, utils.Component("locator"))
	led := ledger.NewLedger(store.Resources, propagator, utils.Component("ledger"))
	fleetService := fleet.NewFleetService(store, propagator, utils.Component("fleet"))
	bookingService := booking.NewBookingService(store, loc, led, router, propagator, booking.Pricing{
		BaseFareMinor: config.AppConfig.BaseFareMinor,
		PerKmMinor:    config.AppConfig.PerKmMinor,
		Currency:      config.AppConfig.Currency,
	}, utils.Component("booking"))
	gateway := payment.NewStripeGateway(config.AppConfig.StripeKey)
	paymentService := payment.NewPaymentService(store, gateway, propagator, config.AppConfig.Currency, utils.Component("payment"))
	statsService := stats.NewStatsService(store)

	// push notifications.
	var (
		pushWorker *asynq.Server
		pushQueue  *asynq.Client
	)
	if config.AppConfig.PushEnabled {
		fcm, err := utils.FirebaseInit(rootCtx)
		if err != nil {
			logger.Fatal("main: push enabled but firebase failed", zap.Error(err))
		}
		pushService := notification.NewPushService(store, notification.NewFCMPusher(fcm), utils.Component("push"))
		pushWorker = cron.InitPushWorker(rootCtx, pushService)
		pushQueue = asynq.NewClient(cron.QueueRedisOpt())
		sink := notification.NewSink(bus, pushQueue, utils.Component("push"))
		go func() {
			if err := sink.Run(rootCtx); err != nil {
				logger.Error("Push sink stopped", zap.Error(err))
			}
		}()
	}

	handlerBundle := &handlers.HandlerBundle{
		Fleet:      handlers.NewFleetHandler(fleetService, loc, 30*24*time.Hour),
		Booking:    handlers.NewBookingHandler(bookingService),
		Payment:    handlers.NewPaymentHandler(paymentService, bookingService, config.AppConfig.StripeWebhookSecret),
		Directions: handlers.NewDirectionsHandler(router),
		Stats:      handlers.NewStatsHandler(statsService),
		Admin:      handlers.NewAdminHandler(fleetService, led, bookingService),
		Stream:     handlers.NewStreamHandler(bus),
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(utils.ErrorHandler())
	engine.Use(gin.Logger())
	engine.Use(middleware.RateLimitMiddleware())
	routes.RegisterRoutes(engine, handlerBundle)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: engine,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}

	// Flush queued signals before the bus goes away.
	propagator.Stop()
	stopBackground()
	if pushWorker != nil {
		pushWorker.Shutdown()
	}
	if pushQueue != nil {
		pushQueue.Close()
	}
	if err := bus.Close(); err != nil {
		logger.Warn("main: bus close failed", zap.Error(err))
	}
	if err := database.CloseDB(ctx); err != nil {
		logger.Warn("main: mongo disconnect failed", zap.Error(err))
	}
	if database.PostgresDB != nil {
		database.PostgresDB.Close()
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
