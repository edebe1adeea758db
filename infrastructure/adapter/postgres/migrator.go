package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fixora/accounts/infrastructure/service/logger"
)

const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

var ErrInvalidMigrationName = errors.New("invalid migration filename")

// Migration is one versioned SQL file, named like 000001_create_users.up.sql.
type Migration struct {
	Version   int
	Name      string
	Path      string
	Direction string
}

// Migrator applies the SQL files of a directory and records them in schema_migrations.
type Migrator struct {
	db     *sqlx.DB
	dir    string
	logger logger.Logger
}

func NewMigrator(db *sqlx.DB, dir string, log logger.Logger) *Migrator {
	return &Migrator{db: db, dir: dir, logger: log}
}

func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureSchemaMigrations(ctx); err != nil {
		return 0, err
	}
	migrations, err := LoadMigrations(m.dir, DirectionUp)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, mig := range migrations {
		done, err := m.isApplied(ctx, mig.Version)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}

		m.logger.Info(ctx, "Applying migration", map[string]interface{}{
			"version": mig.Version,
			"name":    mig.Name,
		})
		err = m.run(ctx, mig, func(tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, $3)`,
				mig.Version, mig.Name, time.Now().UTC())
			return err
		})
		if err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// Down reverts applied migrations, newest first. steps <= 0 reverts all of them.
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	if err := m.ensureSchemaMigrations(ctx); err != nil {
		return 0, err
	}
	migrations, err := LoadMigrations(m.dir, DirectionDown)
	if err != nil {
		return 0, err
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version > migrations[j].Version })

	reverted := 0
	for _, mig := range migrations {
		if steps > 0 && reverted >= steps {
			break
		}
		done, err := m.isApplied(ctx, mig.Version)
		if err != nil {
			return reverted, err
		}
		if !done {
			continue
		}

		m.logger.Info(ctx, "Reverting migration", map[string]interface{}{
			"version": mig.Version,
			"name":    mig.Name,
		})
		err = m.run(ctx, mig, func(tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, mig.Version)
			return err
		})
		if err != nil {
			return reverted, err
		}
		reverted++
	}
	return reverted, nil
}

func (m *Migrator) run(ctx context.Context, mig Migration, record func(tx *sqlx.Tx) error) error {
	script, err := os.ReadFile(mig.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", mig.Path, err)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("failed applying %s: %w", mig.Path, err)
	}
	if err := record(tx); err != nil {
		return fmt.Errorf("failed recording version %d: %w", mig.Version, err)
	}
	return tx.Commit()
}

func (m *Migrator) ensureSchemaMigrations(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema_migrations: %w", err)
	}
	return nil
}

func (m *Migrator) isApplied(ctx context.Context, version int) (bool, error) {
	var exists bool
	err := m.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return exists, nil
}

// LoadMigrations lists the files of dir for one direction, sorted by ascending version.
// Files without a numeric prefix are skipped.
func LoadMigrations(dir, direction string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations dir: %w", err)
	}

	suffix := "." + direction + ".sql"
	var migrations []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), suffix) {
			continue
		}
		version, name, err := ParseMigrationName(e.Name())
		if err != nil {
			continue
		}
		migrations = append(migrations, Migration{
			Version:   version,
			Name:      name,
			Path:      filepath.Join(dir, e.Name()),
			Direction: direction,
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func ParseMigrationName(filename string) (int, string, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		return 0, "", ErrInvalidMigrationName
	}
	version, err := strconv.Atoi(parts[0])
	if err != nil || version <= 0 {
		return 0, "", ErrInvalidMigrationName
	}

	name := parts[1]
	for _, suffix := range []string{".up.sql", ".down.sql", ".sql"} {
		if strings.HasSuffix(strings.ToLower(name), suffix) {
			name = name[:len(name)-len(suffix)]
			break
		}
	}
	return version, name, nil
}
