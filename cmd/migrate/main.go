package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/ignite/leadops/internal/config"
	"github.com/ignite/leadops/internal/pkg/logger"
	"github.com/ignite/leadops/internal/repository/postgres"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		fatal("load config", err)
	}
	if !cfg.Database.Enabled() {
		fatal("DATABASE_URL is required", nil)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		fatal("connect", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		fatal("ping", err)
	}
	logger.Info("connected to database")

	if err := postgres.Migrate(ctx, db); err != nil {
		fatal("migrate", err)
	}
	logger.Info("recipient list schema is up to date")
}

func fatal(msg string, err error) {
	if err != nil {
		logger.Error(msg, "error", err)
	} else {
		logger.Error(msg)
	}
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
