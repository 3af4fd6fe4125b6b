package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kolna/keysync/internal/config"
	"github.com/kolna/keysync/internal/database"
	"github.com/kolna/keysync/internal/handler"
	"github.com/kolna/keysync/internal/jobs"
	"github.com/kolna/keysync/internal/lockapi"
	"github.com/kolna/keysync/internal/middleware"
	"github.com/kolna/keysync/internal/notify"
	"github.com/kolna/keysync/internal/redis"
	"github.com/kolna/keysync/internal/repository"
	"github.com/kolna/keysync/internal/service"
	"github.com/kolna/keysync/internal/smoobu"
	syncpkg "github.com/kolna/keysync/internal/sync"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	// Redis is optional: without it the vendor token lives in process memory
	// and webhook rate limiting is disabled.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	} else {
		log.Warn().Msg("REDIS_URL not set: token cache is in-memory, rate limiting disabled")
	}

	webhookLogRepo := repository.NewWebhookLogRepository(db.DB)
	syncHistoryRepo := repository.NewSyncHistoryRepository(db.DB)

	lockClient := buildLockClient(cfg, redisClient)
	smoobuClient := smoobu.NewClient(cfg.SmoobuBaseURL, cfg.SmoobuAPIKey)
	smsClient := notify.NewSMSFactorClient(cfg.SMSFactorBaseURL, cfg.SMSFactorToken, cfg.SMSSender)
	dispatcher := notify.NewDispatcher(smsClient, smoobuClient)

	auditService := service.NewAuditService(webhookLogRepo, syncHistoryRepo)
	engine := service.NewReconcileService(cfg, lockClient, dispatcher, auditService)
	reconciler := syncpkg.NewReconciler(cfg, smoobuClient, lockClient, dispatcher, auditService)

	signatureMiddleware := middleware.NewSignatureMiddleware(cfg.WebhookSecret)
	allowlistMiddleware := middleware.NewIPAllowlistMiddleware(cfg.WebhookIPAllowlist)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	var rateLimitMiddleware *middleware.RateLimitMiddleware
	if redisClient != nil {
		rateLimitMiddleware = middleware.NewRateLimitMiddleware(redisClient.Client, cfg.WebhookRatePerMin)
	} else {
		rateLimitMiddleware = middleware.NewRateLimitMiddleware(nil, cfg.WebhookRatePerMin)
	}

	webhookHandler := handler.NewWebhookHandler(engine)
	adminHandler := handler.NewAdminHandler(cfg.AdminPasswordHash, reconciler, syncHistoryRepo)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/webhook", func(r chi.Router) {
		r.Use(allowlistMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Use(signatureMiddleware.Handler)
		r.Post("/smoobu", webhookHandler.Receive)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Mount("/", adminHandler.Routes())
	})

	retentionJob := jobs.NewRetentionJob(
		webhookLogRepo, syncHistoryRepo,
		time.Duration(cfg.LogRetentionDays)*24*time.Hour,
		config.RetentionJobInterval,
	)
	retentionJob.Start()
	defer retentionJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		// No write timeout: an admin bulk sync legitimately runs for minutes.
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func buildLockClient(cfg *config.Config, redisClient *redis.Client) lockapi.Client {
	if cfg.LockClient == "form" {
		log.Info().Msg("using form-based lock client")
		return lockapi.NewFormClient(cfg.TheKeysBaseURL, cfg.TheKeysUsername, cfg.TheKeysPassword)
	}

	var cache lockapi.TokenCache
	if redisClient != nil {
		cache = lockapi.NewRedisTokenCache(redisClient, cfg.TheKeysUsername)
	} else {
		cache = lockapi.NewMemoryTokenCache()
	}
	return lockapi.NewTokenClient(cfg.TheKeysBaseURL, cfg.TheKeysUsername, cfg.TheKeysPassword, cache)
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
