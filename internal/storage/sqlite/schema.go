package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Init creates the schema if it does not exist yet. Safe to run on
// every startup.
func Init(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			platform TEXT NOT NULL,
			handle TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'unknown',
			is_enabled INTEGER NOT NULL DEFAULT 1,
			UNIQUE (platform, handle)
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			platform TEXT NOT NULL,
			post_id TEXT NOT NULL,
			url TEXT NOT NULL,
			category TEXT NOT NULL,
			account_id INTEGER REFERENCES accounts (id) ON DELETE CASCADE,
			author_handle TEXT NOT NULL DEFAULT '',
			author_display_name TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			lang TEXT NOT NULL DEFAULT '',
			created_at TEXT,
			retrieved_at TEXT NOT NULL,
			media_json TEXT NOT NULL DEFAULT '[]',
			metrics_json TEXT NOT NULL DEFAULT '{}',
			reply_to_post_id TEXT,
			quoted_post_id TEXT,
			raw_json TEXT NOT NULL DEFAULT '{}',
			UNIQUE (platform, post_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_category ON posts (category)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_account ON posts (account_id)`,
		`CREATE TABLE IF NOT EXISTS post_likes (
			post_id TEXT PRIMARY KEY,
			like_count INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
