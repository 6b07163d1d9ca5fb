// Package auth resolves bearer tokens to user sessions.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/allstar/stockwatch/pkg/domain"
)

// ErrUnauthorized indicates a missing, malformed or expired credential
var ErrUnauthorized = errors.New("unauthorized")

// SessionStore looks up sessions by token
type SessionStore interface {
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)
}

// Service authenticates incoming requests
type Service struct {
	sessions SessionStore
}

// NewService creates an auth service over the given session store
func NewService(sessions SessionStore) *Service {
	return &Service{sessions: sessions}
}

// UserFromRequest extracts the bearer token from the Authorization header and
// resolves it to a user. Any lookup miss maps to ErrUnauthorized.
func (s *Service) UserFromRequest(r *http.Request) (*domain.User, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.sessions.GetBySessionToken(r.Context(), token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// bearerToken pulls the token out of "Authorization: Bearer <token>"
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
