package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryan-buckman/hearth/internal/feed"
)

// CookieName is the name of the session cookie.
const CookieName = "hearth_session"

// Options configures a Manager. Zero values use the package defaults.
type Options struct {
	RevealLatency time.Duration
	PromoCooldown time.Duration
	TTL           time.Duration
	SecureCookie  bool
	Now           func() time.Time
}

// Manager ties sessions to HTTP requests and applies reward transitions.
//
// Read-modify-write of a session is serialized by a single mutex, which is
// enough for one process. Several processes sharing a Redis store can still
// interleave updates of the same session.
type Manager struct {
	store    Store
	logger   *zap.Logger
	mu       sync.Mutex
	latency  time.Duration
	cooldown time.Duration
	ttl      time.Duration
	secure   bool
	now      func() time.Time
}

// NewManager creates a Manager backed by store. A nil logger discards output.
func NewManager(store Store, logger *zap.Logger, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		store:    store,
		logger:   logger,
		latency:  feed.DefaultRevealLatency,
		cooldown: feed.DefaultPromoCooldown,
		ttl:      DefaultTTL,
		secure:   opts.SecureCookie,
		now:      time.Now,
	}
	if opts.RevealLatency > 0 {
		m.latency = opts.RevealLatency
	}
	if opts.PromoCooldown > 0 {
		m.cooldown = opts.PromoCooldown
	}
	if opts.TTL > 0 {
		m.ttl = opts.TTL
	}
	if opts.Now != nil {
		m.now = opts.Now
	}
	return m
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time {
	return m.now()
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying the session id.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext returns the session id attached by Middleware.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Middleware loads the session named by the request cookie, creating a new
// one when the cookie is missing or the session has expired.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.ensure(r)
		if err != nil {
			m.logger.Error("failed to load session", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(m.ttl.Seconds()),
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
	})
}

func (m *Manager) ensure(r *http.Request) (string, error) {
	ctx := r.Context()
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		_, err := m.store.Get(ctx, c.Value)
		if err == nil {
			return c.Value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}

	s := Session{
		ID:        uuid.NewString(),
		UpdatedAt: m.now(),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	m.logger.Debug("session created", zap.String("session_id", s.ID))
	return s.ID, nil
}

// Current returns the request's session with finished reveals settled.
func (m *Manager) Current(ctx context.Context) (Session, error) {
	id, ok := IDFromContext(ctx)
	if !ok {
		return Session{}, ErrNotFound
	}
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	s.Reveal = s.Reveal.Settle(m.now())
	return s, nil
}

// update applies fn to the request's session and saves the result. Nothing is
// saved when fn fails.
func (m *Manager) update(ctx context.Context, fn func(s *Session, now time.Time) error) (Session, error) {
	id, ok := IDFromContext(ctx)
	if !ok {
		return Session{}, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	now := m.now()
	if err := fn(&s, now); err != nil {
		return s, err
	}
	s.UpdatedAt = now
	if err := m.store.Save(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}

// Reveal reserves an attempt for listingID and returns a channel that is
// closed once the simulated verification has finished.
func (m *Manager) Reveal(ctx context.Context, listingID string) (feed.RevealResult, <-chan struct{}, error) {
	var res feed.RevealResult
	s, err := m.update(ctx, func(s *Session, now time.Time) error {
		next, r, err := s.Reveal.Reveal(listingID, now, m.latency)
		if err != nil {
			return err
		}
		s.Reveal, res = next, r
		return nil
	})
	if err != nil {
		return feed.RevealResult{}, nil, err
	}

	done := make(chan struct{})
	wait := res.ReadyAt.Sub(m.now())
	if wait <= 0 {
		close(done)
	} else {
		time.AfterFunc(wait, func() { close(done) })
	}
	m.logger.Debug("reveal requested",
		zap.String("session_id", s.ID),
		zap.String("listing_id", listingID),
		zap.String("status", string(res.Status)),
		zap.Int("remaining_attempts", s.Reveal.RemainingAttempts))
	return res, done, nil
}

// EarnAttempt registers a promo interaction on the request's session.
func (m *Manager) EarnAttempt(ctx context.Context) (feed.RevealState, error) {
	s, err := m.update(ctx, func(s *Session, now time.Time) error {
		next, err := s.Reveal.Settle(now).RegisterPromoInteraction(now, m.cooldown)
		if err != nil {
			return err
		}
		s.Reveal = next
		return nil
	})
	if err != nil {
		return s.Reveal, err
	}
	return s.Reveal, nil
}

// SetUser signs userID in on the request's session.
func (m *Manager) SetUser(ctx context.Context, userID string) error {
	_, err := m.update(ctx, func(s *Session, _ time.Time) error {
		s.UserID = userID
		return nil
	})
	return err
}

// ClearUser signs the request's session out. Earned attempts are kept.
func (m *Manager) ClearUser(ctx context.Context) error {
	_, err := m.update(ctx, func(s *Session, _ time.Time) error {
		s.UserID = ""
		return nil
	})
	return err
}
