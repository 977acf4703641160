// Package sqlite provides a SQLite-backed settings repository.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
	"github.com/tejashwikalptaru/tunescape/internal/ports"

	_ "github.com/mattn/go-sqlite3" // database/sql driver
)

// queryTimeout bounds each statement; the ports are synchronous.
const queryTimeout = 5 * time.Second

// schemaVersion is recorded in settings_meta under "settings.version".
const schemaVersion = 1

// SettingsRepository stores visualizer overrides one row per field.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository opens path and migrates the schema.
// Use ":memory:" for a throwaway database.
func NewSettingsRepository(path string) (*SettingsRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	repo := &SettingsRepository{db: db}
	if err := repo.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return repo, nil
}

func (r *SettingsRepository) migrate() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS visualizer_settings (
			visualizer TEXT NOT NULL,
			grp        TEXT NOT NULL,
			field      TEXT NOT NULL,
			value      REAL NOT NULL,
			PRIMARY KEY (visualizer, grp, field)
		);
		CREATE TABLE IF NOT EXISTS settings_meta (
			key   TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO settings_meta (key, value) VALUES ('settings.version', ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, schemaVersion)
	return err
}

// Version returns the recorded settings.version.
func (r *SettingsRepository) Version() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var v int
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings_meta WHERE key = 'settings.version'").Scan(&v)
	if err != nil {
		return 0, domain.NewRepositoryError("Version", "settings", "query failed", err)
	}
	return v, nil
}

// Close closes the database.
func (r *SettingsRepository) Close() error {
	return r.db.Close()
}

// Load returns the stored overrides for key.
func (r *SettingsRepository) Load(key string) (domain.SettingsOverrides, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		"SELECT grp, field, value FROM visualizer_settings WHERE visualizer = ?", key)
	if err != nil {
		return nil, domain.NewRepositoryError("Load", "settings", "query failed", err)
	}
	defer rows.Close()

	o := domain.SettingsOverrides{}
	for rows.Next() {
		var group, field string
		var value float64
		if err := rows.Scan(&group, &field, &value); err != nil {
			return nil, domain.NewRepositoryError("Load", "settings", "scan failed", err)
		}
		o.Set(group, field, value)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewRepositoryError("Load", "settings", "iteration failed", err)
	}
	return o, nil
}

const upsertField = `
	INSERT INTO visualizer_settings (visualizer, grp, field, value) VALUES (?, ?, ?, ?)
	ON CONFLICT (visualizer, grp, field) DO UPDATE SET value = excluded.value
`

// SaveField upserts one field of key's bag.
func (r *SettingsRepository) SaveField(key, group, name string, value float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, upsertField, key, group, name, value); err != nil {
		return domain.NewRepositoryError("SaveField", "settings", "upsert failed", err)
	}
	return nil
}

// Replace overwrites key's bag in one transaction.
func (r *SettingsRepository) Replace(key string, overrides domain.SettingsOverrides) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewRepositoryError("Replace", "settings", "begin failed", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM visualizer_settings WHERE visualizer = ?", key); err != nil {
		return domain.NewRepositoryError("Replace", "settings", "delete failed", err)
	}
	for group, fields := range overrides {
		for name, value := range fields {
			if _, err := tx.ExecContext(ctx, upsertField, key, group, name, value); err != nil {
				return domain.NewRepositoryError("Replace", "settings", "insert failed", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewRepositoryError("Replace", "settings", "commit failed", err)
	}
	return nil
}

// Clear removes every stored bag.
func (r *SettingsRepository) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, "DELETE FROM visualizer_settings"); err != nil {
		return domain.NewRepositoryError("Clear", "settings", "delete failed", err)
	}
	return nil
}

var _ ports.SettingsRepository = (*SettingsRepository)(nil)
