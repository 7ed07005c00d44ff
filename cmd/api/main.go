package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"reputation_hub/internal/adapters/gbp"
	"reputation_hub/internal/adapters/gemini"
	server "reputation_hub/internal/adapters/http_server"
	"reputation_hub/internal/adapters/mailer"
	"reputation_hub/internal/adapters/observability"
	redisad "reputation_hub/internal/adapters/redis"
	"reputation_hub/internal/app"
	"reputation_hub/internal/shared"
	mysqlrepo "reputation_hub/internal/storage/mysql"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := cfg.RequireAPI(); err != nil {
		log.Fatal().Err(err).Msg("config incomplete")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.RedisPrefix)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		// reads still work straight from MySQL
		log.Warn().Err(err).Msg("redis unreachable; serving uncached")
	}

	platform := gbp.New(gbp.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		RPS:          cfg.GoogleRPS,
	}, repo)
	model := gemini.New(cfg.GeminiBaseURL, cfg.GeminiKey, cfg.GeminiModel, cfg.GeminiRPS)

	h := &server.Handlers{
		Q:             app.NewQueryService(repo, repo, cache, cfg.CacheTTL),
		Sync:          app.NewSyncService(platform, repo, cache, cfg.SyncWorkers),
		Replies:       app.NewReplyService(platform, repo, cache),
		Audit:         app.NewAuditService(repo, model, cache, cfg.AuditConcurrency, cfg.AuditBatch),
		Drafts:        app.NewDraftService(model),
		Surveys:       app.NewSurveyService(repo, mailer.NewLog(log.Logger, cfg.MailFrom), cfg.AppURL),
		Auth:          platform,
		Users:         repo,
		JWTSecret:     []byte(cfg.JWTSecret),
		WebhookSecret: cfg.WebhookSecret,
		AppURL:        cfg.AppURL,
	}

	// http
	srv := server.New(server.Options{
		Timeout:        cfg.HTTPTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
		RatePerMinute:  cfg.RatePerMinute,
	})
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
