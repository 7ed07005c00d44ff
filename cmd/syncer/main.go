package main

import (
	"context"
	"database/sql"
	"flag"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"reputation_hub/internal/adapters/gbp"
	"reputation_hub/internal/adapters/gemini"
	"reputation_hub/internal/adapters/observability"
	redisad "reputation_hub/internal/adapters/redis"
	"reputation_hub/internal/app"
	"reputation_hub/internal/shared"
	mysqlrepo "reputation_hub/internal/storage/mysql"
)

// syncer runs one sync pass followed by one audit sweep, or repeats them
// every -every when set (e.g. -every=1h).
func main() {
	every := flag.Duration("every", 0, "repeat interval; 0 runs once")
	skipAudit := flag.Bool("skip-audit", false, "only sync, do not classify")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Int("workers", cfg.SyncWorkers).
		Int("audit_concurrency", cfg.AuditConcurrency).
		Dur("every", *every).
		Msg("syncer starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *every > 0 {
		observability.Serve(cfg.MetricsAddr, observability.InitRegistry())
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.RedisPrefix)
	defer cache.Close()

	platform := gbp.New(gbp.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		RPS:          cfg.GoogleRPS,
	}, repo)
	syncer := app.NewSyncService(platform, repo, cache, cfg.SyncWorkers)
	auditor := app.NewAuditService(repo,
		gemini.New(cfg.GeminiBaseURL, cfg.GeminiKey, cfg.GeminiModel, cfg.GeminiRPS),
		cache, cfg.AuditConcurrency, cfg.AuditBatch)

	pass := func() {
		start := time.Now()
		res := syncer.SyncAll(ctx)
		observability.ObserveSync(res)
		log.Info().Int("synced", res.Synced).Int("failures", res.Failures).Bool("skipped", res.Skipped).
			Dur("took", time.Since(start)).Msg("sync pass done")

		if *skipAudit {
			return
		}
		observability.ObserveAudit(auditor.ProcessPending(ctx))
	}

	pass()
	if *every <= 0 {
		return
	}
	t := time.NewTicker(*every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("syncer stopped")
			return
		case <-t.C:
			pass()
		}
	}
}
