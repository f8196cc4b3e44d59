// Package identity resolves the user behind a request.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bryan-buckman/hearth/internal/database"
	"github.com/bryan-buckman/hearth/internal/model"
	"github.com/bryan-buckman/hearth/internal/session"
)

// Provider returns the signed-in user of a request, or nil when anonymous.
type Provider interface {
	CurrentUser(r *http.Request) (*model.User, error)
}

// UserGetter is the part of database.Store used to resolve users.
type UserGetter interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// Sessions is the part of session.Manager used to read the request session.
type Sessions interface {
	Current(ctx context.Context) (session.Session, error)
}

// SessionProvider reads the user id from the request session and loads the
// user from the store.
type SessionProvider struct {
	sessions Sessions
	users    UserGetter
}

var _ Provider = (*SessionProvider)(nil)

// NewSessionProvider creates a Provider backed by sessions and users.
func NewSessionProvider(sessions Sessions, users UserGetter) *SessionProvider {
	return &SessionProvider{sessions: sessions, users: users}
}

// CurrentUser implements Provider. A session pointing at a deleted user is
// treated as anonymous.
func (p *SessionProvider) CurrentUser(r *http.Request) (*model.User, error) {
	s, err := p.sessions.Current(r.Context())
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s.UserID == "" {
		return nil, nil
	}
	u, err := p.users.GetUser(r.Context(), s.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}
