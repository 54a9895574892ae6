package main

import (
	"context"
	"flag"
	"log"

	"github.com/tradewind/exchange/internal/pkg/config"
	"github.com/tradewind/exchange/pkg/migration"
	"github.com/tradewind/exchange/pkg/postgresql"
)

func main() {
	var (
		direction = flag.String("direction", "up", "Migration direction: up or down")
		steps     = flag.Int("steps", 0, "Number of steps to migrate (0 = all)")
		dir       = flag.String("dir", "internal/infrastructure/postgres/migrations", "Migration directory")
	)
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgresql.NewClient(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()

	runner := migration.NewRunner(pgClient, migration.Config{
		MigrationDir: *dir,
	})

	if err := runner.EnsureTrackingTable(ctx); err != nil {
		log.Fatalf("Failed to create migration tracking table: %v", err)
	}

	switch *direction {
	case "up":
		if err := runner.Up(ctx, *steps); err != nil {
			log.Fatalf("Failed to migrate up: %v", err)
		}
	case "down":
		if err := runner.Down(ctx, *steps); err != nil {
			log.Fatalf("Failed to migrate down: %v", err)
		}
	default:
		log.Fatalf("Invalid direction: %s. Use 'up' or 'down'", *direction)
	}

	log.Printf("Migration %s completed successfully", *direction)
}
