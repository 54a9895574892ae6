package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tradewind/exchange/pkg/postgresql"
)

// Migration is one schema change, loaded from a pair of .up.sql / .down.sql
// files named <timestamp>_<name>.
type Migration struct {
	ID      string
	Name    string
	UpSQL   string
	DownSQL string
}

// Config for the migration runner.
type Config struct {
	MigrationDir string
	Schema       string // PostgreSQL schema name (default: "public")
	TableName    string // Migration tracking table (default: "schema_migrations")
}

// Runner applies and reverts schema migrations against PostgreSQL. Each
// migration runs in its own transaction together with its tracking record.
type Runner struct {
	client       postgresql.PostgreSQLClient
	migrationDir string
	schema       string
	tableName    string
}

// NewRunner creates a migration runner.
func NewRunner(client postgresql.PostgreSQLClient, config Config) *Runner {
	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.TableName == "" {
		config.TableName = "schema_migrations"
	}

	return &Runner{
		client:       client,
		migrationDir: config.MigrationDir,
		schema:       config.Schema,
		tableName:    config.TableName,
	}
}

// EnsureTrackingTable creates the tracking table if it doesn't exist.
func (r *Runner) EnsureTrackingTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
	`, r.schema, r.tableName)

	_, err := r.client.Exec(ctx, query)
	return err
}

// Applied returns the set of applied migration ids.
func (r *Runner) Applied(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)

	query := fmt.Sprintf("SELECT id FROM %s.%s ORDER BY applied_at", r.schema, r.tableName)
	rows, err := r.client.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}

	return applied, rows.Err()
}

// Load reads every migration pair from the migration directory, ordered by id.
func (r *Runner) Load() ([]Migration, error) {
	upFiles, err := filepath.Glob(filepath.Join(r.migrationDir, "*.up.sql"))
	if err != nil {
		return nil, err
	}

	sort.Strings(upFiles)

	var migrations []Migration
	for _, upFile := range upFiles {
		m, err := loadPair(upFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load migration %s: %w", upFile, err)
		}
		migrations = append(migrations, m)
	}

	return migrations, nil
}

func loadPair(upPath string) (Migration, error) {
	upContent, err := os.ReadFile(upPath)
	if err != nil {
		return Migration{}, err
	}

	id := strings.TrimSuffix(filepath.Base(upPath), ".up.sql")

	name := id
	if parts := strings.SplitN(id, "_", 2); len(parts) == 2 {
		if _, err := time.Parse("20060102150405", parts[0]); err == nil {
			name = parts[1]
		}
	}

	var downSQL string
	downPath := strings.Replace(upPath, ".up.sql", ".down.sql", 1)
	if downContent, err := os.ReadFile(downPath); err == nil {
		downSQL = strings.TrimSpace(string(downContent))
	}

	return Migration{
		ID:      id,
		Name:    name,
		UpSQL:   strings.TrimSpace(string(upContent)),
		DownSQL: downSQL,
	}, nil
}

// Up applies pending migrations. steps caps how many run; 0 means all.
func (r *Runner) Up(ctx context.Context, steps int) error {
	migrations, err := r.Load()
	if err != nil {
		return err
	}

	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}

	var pending []Migration
	for _, m := range migrations {
		if !applied[m.ID] {
			pending = append(pending, m)
		}
	}

	if steps > 0 && len(pending) > steps {
		pending = pending[:steps]
	}

	for _, m := range pending {
		if m.UpSQL == "" {
			return fmt.Errorf("migration %s has an empty up script", m.ID)
		}

		err := postgresql.WithTx(ctx, r.client, func(txCtx context.Context) error {
			q := postgresql.QueryerFromContext(txCtx, r.client)

			if _, err := q.Exec(txCtx, m.UpSQL); err != nil {
				return err
			}

			record := fmt.Sprintf(
				"INSERT INTO %s.%s (id, name, applied_at) VALUES ($1, $2, NOW())",
				r.schema, r.tableName,
			)
			_, err := q.Exec(txCtx, record, m.ID, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
	}

	return nil
}

// Down reverts the most recently applied migrations. steps must be positive.
func (r *Runner) Down(ctx context.Context, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be greater than 0 for down migrations")
	}

	migrations, err := r.Load()
	if err != nil {
		return err
	}

	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}

	var toRevert []Migration
	for i := len(migrations) - 1; i >= 0 && len(toRevert) < steps; i-- {
		if applied[migrations[i].ID] {
			toRevert = append(toRevert, migrations[i])
		}
	}

	for _, m := range toRevert {
		if m.DownSQL == "" {
			return fmt.Errorf("migration %s has no down script, cannot revert", m.ID)
		}

		err := postgresql.WithTx(ctx, r.client, func(txCtx context.Context) error {
			q := postgresql.QueryerFromContext(txCtx, r.client)

			if _, err := q.Exec(txCtx, m.DownSQL); err != nil {
				return err
			}

			remove := fmt.Sprintf("DELETE FROM %s.%s WHERE id = $1", r.schema, r.tableName)
			_, err := q.Exec(txCtx, remove, m.ID)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to revert migration %s: %w", m.ID, err)
		}
	}

	return nil
}
