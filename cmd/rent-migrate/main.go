// Package main applies the reference schema to a Postgres database.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/R3E-Network/rentals/internal/config"
	"github.com/R3E-Network/rentals/internal/logging"
	"github.com/R3E-Network/rentals/internal/platform/migrations"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	envPath := flag.String("env", ".env", "Path to .env file (optional)")
	status := flag.Bool("status", false, "List applied migrations and exit")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	if err := run(*configPath, *envPath, *status, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "rent-migrate:", err)
		os.Exit(1)
	}
}

func run(configPath, envPath string, status bool, timeout time.Duration) error {
	cfg, err := config.Load(configPath, envPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}
	logger := logging.New("rent-migrate", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if status {
		versions, err := migrations.Applied(ctx, db)
		if err != nil {
			return err
		}
		for _, v := range versions {
			fmt.Println(v)
		}
		return nil
	}

	ran, err := migrations.Run(ctx, db)
	for _, v := range ran {
		logger.WithField("version", v).Info("migration applied")
	}
	if err != nil {
		return err
	}
	if len(ran) == 0 {
		logger.Info("schema up to date")
	}
	return nil
}
