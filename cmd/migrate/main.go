package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"reputation_hub/internal/adapters/observability"
	"reputation_hub/internal/shared"
	mysqlrepo "reputation_hub/internal/storage/mysql"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [up|down|status]")
	}
	flag.Parse()
	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	_ = godotenv.Load()
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx := context.Background()
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()

	p, err := mysqlrepo.NewMigrator(db)
	if err != nil {
		log.Fatal().Err(err).Msg("goose provider failed")
	}

	switch cmd {
	case "up":
		res, err := p.Up(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("migrate up failed")
		}
		for _, r := range res {
			log.Info().Int64("version", r.Source.Version).Dur("took", r.Duration).Msg("applied")
		}
	case "down":
		r, err := p.Down(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("migrate down failed")
		}
		log.Info().Int64("version", r.Source.Version).Msg("rolled back")
	case "status":
		st, err := p.Status(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("migrate status failed")
		}
		for _, s := range st {
			log.Info().Int64("version", s.Source.Version).Str("state", string(s.State)).Msg("migration")
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}
