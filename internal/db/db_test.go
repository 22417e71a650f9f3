package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := Connect(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "test.db"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestConnectAppliesMigrations(t *testing.T) {
	database := openTestDB(t)

	for _, table := range []string{"users", "messages", "message_recipients"} {
		var count int
		err := database.Get(&count, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=$1`, table)
		require.NoError(t, err)
		assert.Equal(t, 1, count, table)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	database := openTestDB(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, Migrate(context.Background(), database))
	}
}

func TestConnectUnsupportedDriver(t *testing.T) {
	_, err := Connect(context.Background(), "mysql", "whatever", Options{})
	require.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/a.db?_foreign_keys=on&_busy_timeout=5000", sqliteDSN("/tmp/a.db"))
	assert.Equal(t, "file:a.db?cache=shared&_foreign_keys=on&_busy_timeout=5000", sqliteDSN("file:a.db?cache=shared"))
	assert.Equal(t, "file:a.db?_foreign_keys=on&_busy_timeout=1", sqliteDSN("file:a.db?_foreign_keys=on&_busy_timeout=1"))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithTx(ctx, database, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)`,
			"u1", "a@x.com", "A", time.Now().UTC()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, database.Get(&count, `SELECT COUNT(*) FROM users`))
	assert.Zero(t, count)
}

func TestWithTxCommits(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	err := WithTx(ctx, database, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)`,
			"u1", "a@x.com", "A", time.Now().UTC())
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, database.Get(&count, `SELECT COUNT(*) FROM users`))
	assert.Equal(t, 1, count)
}

func TestConstraintClassification(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := database.ExecContext(ctx, `INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)`, "u1", "a@x.com", "A", now)
	require.NoError(t, err)

	_, err = database.ExecContext(ctx, `INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)`, "u2", "a@x.com", "A2", now)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))

	_, err = database.ExecContext(ctx, `INSERT INTO messages (id, sender_id, content, created_at) VALUES ($1, $2, $3, $4)`, "m1", "missing", "hi", now)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
	assert.False(t, IsUniqueViolation(err))

	assert.False(t, IsUniqueViolation(errors.New("plain")))
}

func TestDeliveryReadCheckConstraint(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := database.ExecContext(ctx, `INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)`, "u1", "a@x.com", "A", now)
	require.NoError(t, err)
	_, err = database.ExecContext(ctx, `INSERT INTO messages (id, sender_id, content, created_at) VALUES ($1, $2, $3, $4)`, "m1", "u1", "hi", now)
	require.NoError(t, err)

	_, err = database.ExecContext(ctx, `INSERT INTO message_recipients (id, message_id, recipient_id, is_read, read_at) VALUES ($1, $2, $3, $4, $5)`,
		"d1", "m1", "u1", true, nil)
	require.Error(t, err)
}
