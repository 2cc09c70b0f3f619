package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"pulgax-store/api/handlers"
	"pulgax-store/internal/auth"
	"pulgax-store/internal/config"
	"pulgax-store/internal/metrics"
	"pulgax-store/internal/middleware"
	"pulgax-store/internal/notifications"
	"pulgax-store/internal/pricing"
	"pulgax-store/internal/repository"
	"pulgax-store/internal/repository/jsonstore"
	"pulgax-store/internal/repository/postgres"
	"pulgax-store/internal/services"
)

func main() {
	logger := logrus.New()
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogger(logger, cfg.Log)
	gin.SetMode(cfg.Server.Mode)
	log := logrus.NewEntry(logger)

	// Storage
	store, err := openStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to open storage")
	}
	log.WithField("driver", cfg.Storage.Driver).Info("Storage ready")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Order numbers
	var (
		numbers services.OrderNumberGenerator = services.NewRandomOrderNumbers(cfg.Orders.NumberPrefix)
		rdb     *redis.Client
	)
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.WithError(err).Warn("Redis unreachable at startup, order numbers fall back to random")
		}
		cancel()
		numbers = services.NewRedisOrderNumbers(rdb, cfg.Orders.NumberPrefix, log)
	}

	// Notifications
	mailer, err := notifications.NewMailer(cfg.Email, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure mailer")
	}
	sinks := []notifications.Sink{notifications.NewEmailSink(mailer, cfg.Email.StorefrontURL)}

	var nc *nats.Conn
	if cfg.NATS.Enabled {
		nc, err = notifications.ConnectNATS(cfg.NATS.URL, log)
		if err != nil {
			log.WithError(err).Warn("NATS unavailable, order events will not be published")
		} else {
			sinks = append(sinks, notifications.NewNATSSink(nc))
		}
	}

	dispatcher := notifications.NewDispatcher(sinks, notifications.DispatcherOptions{
		Workers:   cfg.Notifications.Workers,
		QueueSize: cfg.Notifications.QueueSize,
		Timeout:   cfg.Notifications.Timeout,
	}, m, log)

	// Initialize services
	var google auth.GoogleVerifier
	if cfg.Auth.GoogleClientID != "" {
		google = auth.NewIDTokenVerifier(cfg.Auth.GoogleClientID)
	}
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiry())
	engine := pricing.NewEngine(store, cfg.Orders.TotalTolerance)

	authService := services.NewAuthService(store, store, tokens, google, cfg.Auth.SingleAdmin, log)
	productService := services.NewProductService(store, log)
	categoryService := services.NewCategoryService(store, log)
	orderService := services.NewOrderService(store, engine, numbers, dispatcher, m, log)
	contactService := services.NewContactService(store, log)
	statsService := services.NewStatsService(store)
	consistencyService := services.NewConsistencyService(store, m, log)

	scheduler := cron.New()
	if cfg.Consistency.Schedule != "" {
		if _, err := consistencyService.Schedule(scheduler, cfg.Consistency.Schedule, time.Minute); err != nil {
			log.WithError(err).Fatal("Invalid consistency schedule")
		}
		scheduler.Start()
		log.WithField("schedule", cfg.Consistency.Schedule).Info("Consistency check scheduled")
	}

	// Setup router
	router := handlers.NewRouter(handlers.RouterDeps{
		Products:    handlers.NewProductHandler(productService),
		Categories:  handlers.NewCategoryHandler(categoryService),
		Orders:      handlers.NewOrderHandler(orderService),
		Auth:        handlers.NewAuthHandler(authService),
		Contact:     handlers.NewContactHandler(contactService),
		Admin:       handlers.NewAdminHandler(statsService, consistencyService),
		Health:      handlers.NewHealthHandler(store),
		Authn:       authService,
		RateLimiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Metrics:     m,
		Gatherer:    reg,
		Logger:      logger,
		CORSOrigins: cfg.CORS.Origins,
	})

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run server in goroutine
	go func() {
		log.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	<-scheduler.Stop().Done()
	if err := dispatcher.Close(ctx); err != nil {
		log.WithError(err).Warn("Notification queue not fully drained")
	}
	if nc != nil {
		nc.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := store.Close(); err != nil {
		log.WithError(err).Error("Failed to close storage")
	}

	log.Info("Server shutdown complete")
}

func openStore(cfg *config.Config) (repository.Store, error) {
	if cfg.Storage.Driver == config.StoragePostgres {
		return postgres.Open(cfg.Database.DSN(), !cfg.IsProduction())
	}
	return jsonstore.Open(cfg.Storage.DataDir)
}

func configureLogger(logger *logrus.Logger, cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
}
