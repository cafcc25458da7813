package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Manager applies pending migrations against a database handle.
type Manager struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewManager constructs a Manager. A nil logger falls back to slog.Default.
func NewManager(db *sql.DB, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{db: db, logger: logger}
}

// Apply runs every migration whose version has not been recorded yet, in
// ascending version order, each inside its own transaction.
func (m *Manager) Apply(ctx context.Context) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("migration: manager requires a database handle")
	}

	if err := m.ensureVersionTable(ctx); err != nil {
		return err
	}

	applied, err := m.AppliedVersions(ctx)
	if err != nil {
		return err
	}
	appliedSet := make(map[int]struct{}, len(applied))
	for _, version := range applied {
		appliedSet[version] = struct{}{}
	}

	pending := All()
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, mig := range pending {
		if _, ok := appliedSet[mig.Version]; ok {
			continue
		}
		if err := m.applyOne(ctx, mig); err != nil {
			return fmt.Errorf("migration: version %d (%s) failed: %w", mig.Version, mig.Name, err)
		}
		m.logger.InfoContext(ctx, "applied migration", "version", mig.Version, "name", mig.Name)
	}

	return nil
}

// AppliedVersions returns the recorded migration versions in ascending order.
func (m *Manager) AppliedVersions(ctx context.Context) ([]int, error) {
	if err := m.ensureVersionTable(ctx); err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version ASC")
	if err != nil {
		return nil, fmt.Errorf("migration: failed to read applied versions: %w", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("migration: failed to scan version: %w", err)
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

func (m *Manager) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TEXT NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("migration: failed to ensure version table: %w", err)
	}
	return nil
}

func (m *Manager) applyOne(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		mig.Version, mig.Name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
