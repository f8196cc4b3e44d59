// Package session keeps per-visitor state: the signed-in user and the reveal
// attempts earned from promotional slots.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/bryan-buckman/hearth/internal/feed"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Session is the server-side state behind a session cookie.
type Session struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id,omitempty"`
	Reveal    feed.RevealState `json:"reveal"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Store persists sessions. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}
