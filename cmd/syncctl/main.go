// syncctl runs one bulk reconciliation pass from the command line, without
// going through the server's admin endpoint. Dry-run unless -apply is given.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kolna/keysync/internal/config"
	"github.com/kolna/keysync/internal/database"
	"github.com/kolna/keysync/internal/lockapi"
	"github.com/kolna/keysync/internal/notify"
	"github.com/kolna/keysync/internal/redis"
	"github.com/kolna/keysync/internal/repository"
	"github.com/kolna/keysync/internal/service"
	"github.com/kolna/keysync/internal/smoobu"
	syncpkg "github.com/kolna/keysync/internal/sync"
)

func main() {
	apply := flag.Bool("apply", false, "write changes; without it the run is a dry run")
	from := flag.String("from", "", "arrival window start, YYYY-MM-DD (default today)")
	to := flag.String("to", "", "arrival window end, YYYY-MM-DD (default today+90d)")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall run timeout")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(false); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	var cache lockapi.TokenCache = lockapi.NewMemoryTokenCache()
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		cache = lockapi.NewRedisTokenCache(redisClient, cfg.TheKeysUsername)
	}

	var lockClient lockapi.Client
	if cfg.LockClient == "form" {
		lockClient = lockapi.NewFormClient(cfg.TheKeysBaseURL, cfg.TheKeysUsername, cfg.TheKeysPassword)
	} else {
		lockClient = lockapi.NewTokenClient(cfg.TheKeysBaseURL, cfg.TheKeysUsername, cfg.TheKeysPassword, cache)
	}

	smoobuClient := smoobu.NewClient(cfg.SmoobuBaseURL, cfg.SmoobuAPIKey)
	smsClient := notify.NewSMSFactorClient(cfg.SMSFactorBaseURL, cfg.SMSFactorToken, cfg.SMSSender)
	dispatcher := notify.NewDispatcher(smsClient, smoobuClient)

	audit := service.NewAuditService(
		repository.NewWebhookLogRepository(db.DB),
		repository.NewSyncHistoryRepository(db.DB),
	)
	reconciler := syncpkg.NewReconciler(cfg, smoobuClient, lockClient, dispatcher, audit)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, err := reconciler.Run(ctx, *from, *to, *apply)
	if err != nil {
		log.Fatal().Err(err).Msg("reconciliation failed")
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to render report")
	}
	fmt.Println(string(out))
}
