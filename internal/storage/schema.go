package storage

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id      TEXT PRIMARY KEY,
		heir_address TEXT NOT NULL DEFAULT '',
		updated_at   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS savings_targets (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL REFERENCES user_profiles(user_id) ON DELETE CASCADE,
		position     INTEGER NOT NULL,
		amount       INTEGER NOT NULL,
		goal         TEXT NOT NULL,
		created_at   INTEGER NOT NULL,
		target_date  INTEGER NOT NULL,
		daily_target INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_savings_targets_user ON savings_targets(user_id, position)`,
	`CREATE TABLE IF NOT EXISTS family_groups (
		group_id     TEXT PRIMARY KEY,
		savings_goal INTEGER NOT NULL DEFAULT 0,
		total_saved  INTEGER NOT NULL DEFAULT 0,
		created_by   TEXT NOT NULL DEFAULT '',
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS family_members (
		group_id TEXT NOT NULL REFERENCES family_groups(group_id) ON DELETE CASCADE,
		user_id  TEXT NOT NULL,
		PRIMARY KEY (group_id, user_id)
	)`,
}

// InitSchema creates the tables if they do not exist.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
