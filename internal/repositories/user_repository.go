package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/db"
	"messaging-service/internal/models"
)

// UserRepository abstracts the identity store.
type UserRepository interface {
	CreateUser(ctx context.Context, email, name string) (models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	FindByEmailAndName(ctx context.Context, email, name string) (models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db  *sqlx.DB
	now Clock
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db, now: time.Now}
}

// WithClock replaces the time source.
func (r *UserRepo) WithClock(c Clock) *UserRepo {
	r.now = c
	return r
}

// CreateUser stores a new user. Emails are compared exactly.
func (r *UserRepo) CreateUser(ctx context.Context, email, name string) (user models.User, err error) {
	ctx, span := startSpan(ctx, "UserRepo.CreateUser")
	defer func() { endSpan(span, err) }()

	user = models.User{ID: uuid.New(), Email: email, Name: name, CreatedAt: stamp(r.now)}
	_, err = r.db.ExecContext(ctx, `INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Email, user.Name, user.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, email, name, created_at FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns every user, oldest first.
func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, `SELECT id, email, name, created_at FROM users ORDER BY created_at ASC, id ASC`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// FindByEmailAndName looks a user up by the exact (email, name) pair.
func (r *UserRepo) FindByEmailAndName(ctx context.Context, email, name string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, email, name, created_at FROM users WHERE email=$1 AND name=$2`, email, name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// DeleteUser removes a user. Sent messages and received deliveries go with it
// through the foreign key cascade.
func (r *UserRepo) DeleteUser(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "UserRepo.DeleteUser")
	defer func() { endSpan(span, err) }()

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
