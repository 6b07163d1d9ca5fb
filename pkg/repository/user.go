package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/allstar/stockwatch/pkg/domain"
)

// UserRepository reads the externally-owned users and sessions tables.
// The auth provider writes them; this service only looks identities up.
type UserRepository struct {
	db *sqlx.DB
}

type userSQL struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
}

type sessionSQL struct {
	Token     string    `db:"token"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
}

// NewUserRepository creates a new user repository
func NewUserRepository(database *sqlx.DB) *UserRepository {
	return &UserRepository{db: database}
}

// GetByEmail retrieves a user by email, ErrNotFound on miss
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u userSQL
	err := r.db.GetContext(ctx, &u, "SELECT id, email, name FROM users WHERE email = ?", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &domain.User{ID: u.ID, Email: u.Email, Name: u.Name}, nil
}

// ListForDigest returns all users with a usable email and name, the digest
// run's audience
func (r *UserRepository) ListForDigest(ctx context.Context) ([]domain.User, error) {
	var rows []userSQL
	err := r.db.SelectContext(ctx, &rows,
		"SELECT id, email, name FROM users WHERE email != '' AND name != '' ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list users for digest: %w", err)
	}

	users := make([]domain.User, len(rows))
	for i, row := range rows {
		users[i] = domain.User{ID: row.ID, Email: row.Email, Name: row.Name}
	}
	return users, nil
}

// GetBySessionToken resolves a session token to its user, ErrNotFound when the
// token is unknown or expired
func (r *UserRepository) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	var s sessionSQL
	err := r.db.GetContext(ctx, &s, "SELECT token, user_id, expires_at FROM sessions WHERE token = ?", token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	session := domain.Session{Token: s.Token, ExpiresAt: s.ExpiresAt}
	if session.Expired(time.Now()) {
		return nil, ErrNotFound
	}

	var u userSQL
	err = r.db.GetContext(ctx, &u, "SELECT id, email, name FROM users WHERE id = ?", s.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session user: %w", err)
	}
	return &domain.User{ID: u.ID, Email: u.Email, Name: u.Name}, nil
}
