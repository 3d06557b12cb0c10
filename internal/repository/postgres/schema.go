package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS recipient_lists (
		id              UUID PRIMARY KEY,
		organization_id TEXT NOT NULL,
		name            TEXT NOT NULL,
		source          TEXT NOT NULL,
		filename        TEXT,
		delimiter       TEXT NOT NULL,
		recipient_count INTEGER NOT NULL DEFAULT 0,
		skipped_count   INTEGER NOT NULL DEFAULT 0,
		skipped         JSONB,
		archive_key     TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recipient_lists_org_created
		ON recipient_lists (organization_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS recipient_list_members (
		list_id  UUID NOT NULL REFERENCES recipient_lists(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		email    TEXT NOT NULL,
		name     TEXT NOT NULL,
		PRIMARY KEY (list_id, position)
	)`,
}

// Migrate creates the recipient list tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
