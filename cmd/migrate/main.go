package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	pgcatalog "github.com/tendant/simple-video/pkg/simplevideo/catalog/postgres"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL" env-required:"true"`
	Schema      string `env:"DB_SCHEMA" env-default:"video"`
}

func main() {
	down := flag.Bool("down", false, "Roll back every migration instead of applying them")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		slog.Info("No .env file found, using environment", "err", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	if *down {
		if err := pgcatalog.MigrateDown(cfg.DatabaseURL, cfg.Schema); err != nil {
			slog.Error("Migration down failed", "schema", cfg.Schema, "err", err)
			os.Exit(1)
		}
		slog.Info("Migrations rolled back", "schema", cfg.Schema)
		return
	}

	if err := pgcatalog.Migrate(context.Background(), cfg.DatabaseURL, cfg.Schema); err != nil {
		slog.Error("Migration failed", "schema", cfg.Schema, "err", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied", "schema", cfg.Schema)
}
