package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/db"
	"messaging-service/internal/models"
)

// stepClock advances one minute per call so ordering by time is deterministic.
type stepClock struct {
	t time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

type fixture struct {
	db       *sqlx.DB
	users    *UserRepo
	messages *MessageRepo
	queries  *DeliveryQueryRepo
	clock    *stepClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Connect(context.Background(), db.DriverSQLite, filepath.Join(t.TempDir(), "test.db"), db.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	clock := newStepClock()
	return &fixture{
		db:       database,
		users:    NewUserRepo(database).WithClock(clock.Now),
		messages: NewMessageRepo(database).WithClock(clock.Now),
		queries:  NewDeliveryQueryRepo(database),
		clock:    clock,
	}
}

func (f *fixture) user(t *testing.T, email, name string) models.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), email, name)
	require.NoError(t, err)
	return u
}

func (f *fixture) send(t *testing.T, from models.User, content string, to ...models.User) models.Message {
	t.Helper()
	ids := make([]uuid.UUID, 0, len(to))
	for _, u := range to {
		ids = append(ids, u.ID)
	}
	msg, err := f.messages.SendMessage(context.Background(), from.ID, nil, content, ids)
	require.NoError(t, err)
	return msg
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.Get(&n, `SELECT COUNT(*) FROM `+table))
	return n
}

func strPtr(s string) *string { return &s }
