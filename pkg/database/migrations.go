package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bagshub/bagshub/pkg/logger"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	UpSQL       string
}

// Migrations holds all database migrations
var Migrations = []Migration{
	{
		Version:     1,
		Description: "Create users and bookmarks",
		UpSQL: `
			CREATE EXTENSION IF NOT EXISTS pgcrypto;

			CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				username VARCHAR(20) NOT NULL,
				email VARCHAR(255),
				password_hash TEXT NOT NULL,
				display_name VARCHAR(50),
				avatar_url TEXT,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			);

			-- Usernames and emails are unique case-insensitively
			CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(LOWER(username));
			CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email)) WHERE email IS NOT NULL;

			CREATE TABLE IF NOT EXISTS bookmarks (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				token_mint VARCHAR(44) NOT NULL,
				notes TEXT,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				UNIQUE (user_id, token_mint)
			);

			CREATE INDEX IF NOT EXISTS idx_bookmarks_user ON bookmarks(user_id, created_at DESC);
		`,
	},
	{
		Version:     2,
		Description: "Create schema_migrations bookkeeping",
		UpSQL: `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version INT PRIMARY KEY,
				applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			);
		`,
	},
}

// RunMigrations applies all pending migrations in order.
func (db *DB) RunMigrations(ctx context.Context) error {
	// Bookkeeping table first so we can record what we apply.
	if _, err := db.ExecContext(ctx, Migrations[len(Migrations)-1].UpSQL); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[int]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate schema_migrations: %w", err)
	}

	for _, m := range Migrations {
		if applied[m.Version] {
			continue
		}
		logger.Log.Info("applying migration",
			zap.Int("version", m.Version),
			zap.String("description", m.Description))
		if _, err := db.ExecContext(ctx, m.UpSQL); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.Version, err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING`, m.Version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}
