package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            email TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY,
            sender_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            subject TEXT,
            content TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS idx_messages_sender_created ON messages (sender_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS message_recipients (
            id UUID PRIMARY KEY,
            message_id UUID NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            recipient_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            read_at TIMESTAMPTZ,
            UNIQUE (message_id, recipient_id),
            CHECK ((is_read AND read_at IS NOT NULL) OR (NOT is_read AND read_at IS NULL))
        );`,
	`CREATE INDEX IF NOT EXISTS idx_message_recipients_recipient ON message_recipients (recipient_id, is_read);`,
}

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            email TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL,
            created_at TIMESTAMP NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            sender_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            subject TEXT,
            content TEXT NOT NULL,
            created_at TIMESTAMP NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_messages_sender_created ON messages (sender_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS message_recipients (
            id TEXT PRIMARY KEY,
            message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            recipient_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            is_read BOOLEAN NOT NULL DEFAULT 0,
            read_at TIMESTAMP,
            UNIQUE (message_id, recipient_id),
            CHECK ((is_read = 1 AND read_at IS NOT NULL) OR (is_read = 0 AND read_at IS NULL))
        );`,
	`CREATE INDEX IF NOT EXISTS idx_message_recipients_recipient ON message_recipients (recipient_id, is_read);`,
}

// Migrate applies the schema for the connection's driver. It is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var migrations []string
	switch db.DriverName() {
	case DriverPostgres:
		migrations = postgresMigrations
	case DriverSQLite:
		migrations = sqliteMigrations
	default:
		return fmt.Errorf("no migrations for driver %q", db.DriverName())
	}

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
