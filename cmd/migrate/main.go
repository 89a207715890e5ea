package main

// Apply or inspect the document gateway schema:
//   go run ./cmd/migrate                 # up
//   go run ./cmd/migrate -cmd version
//   go run ./cmd/migrate -cmd down -timeout 2m

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"logistics-backend/internal/shared/config"
	"logistics-backend/internal/shared/storage/db"
	"logistics-backend/internal/shared/telemetry"
)

func main() {
	command := flag.String("cmd", "up", "goose command: "+strings.Join(db.MigrateCommands, ", "))
	timeout := flag.Duration("timeout", 5*time.Minute, "abort if migrations run longer than this")
	flag.Parse()

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		telemetry.Error("migrate.connect.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, *command); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": *command, "error": err.Error()})
		sqlDB.Close()
		os.Exit(1)
	}
	telemetry.Info("migrate.complete", map[string]any{"command": *command, "env": cfg.Env})
}
