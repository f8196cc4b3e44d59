package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bryan-buckman/hearth/internal/feed"
)

func newTestManager(t *testing.T, latency time.Duration) (*Manager, *MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: base}
	store := NewMemoryStore(time.Hour)
	store.now = clock.Now
	m := NewManager(store, nil, Options{
		RevealLatency: latency,
		PromoCooldown: 30 * time.Second,
		Now:           clock.Now,
	})
	return m, store, clock
}

// sessionCtx creates a session and returns a context carrying its id.
func sessionCtx(t *testing.T, store Store) context.Context {
	t.Helper()
	if err := store.Save(context.Background(), Session{ID: "sid"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	return NewContext(context.Background(), "sid")
}

func TestMiddlewareCreatesAndReusesSession(t *testing.T) {
	m, store, _ := newTestManager(t, time.Millisecond)

	var seen []string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IDFromContext(r.Context())
		if !ok {
			t.Error("no session id in context")
		}
		seen = append(seen, id)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)

	// Unknown ids are replaced by a fresh session.
	stale := httptest.NewRequest(http.MethodGet, "/", nil)
	stale.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	h.ServeHTTP(httptest.NewRecorder(), stale)

	if len(seen) != 3 {
		t.Fatalf("handler called %d times", len(seen))
	}
	if seen[0] != cookies[0].Value || seen[1] != seen[0] {
		t.Errorf("session not reused: %v", seen)
	}
	if seen[2] == "forged" || seen[2] == seen[0] {
		t.Errorf("forged id accepted: %v", seen)
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", store.Len())
	}
}

func TestManagerRevealWaitsForVerification(t *testing.T) {
	m, store, clock := newTestManager(t, 20*time.Millisecond)
	ctx := sessionCtx(t, store)

	if _, _, err := m.Reveal(ctx, "l1"); !errors.Is(err, feed.ErrNoAttemptsRemaining) {
		t.Fatalf("expected ErrNoAttemptsRemaining, got %v", err)
	}

	state, err := m.EarnAttempt(ctx)
	if err != nil {
		t.Fatalf("earn: %v", err)
	}
	if state.RemainingAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", state.RemainingAttempts)
	}

	res, done, err := m.Reveal(ctx, "l1")
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if diff := cmp.Diff(feed.RevealResult{Status: feed.RevealStarted, ReadyAt: base.Add(20 * time.Millisecond)}, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	// The reservation is persisted before verification finishes.
	s, err := m.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if s.Reveal.RemainingAttempts != 0 || s.Reveal.IsRevealed("l1", clock.Now()) {
		t.Errorf("unexpected state during verification: %+v", s.Reveal)
	}

	// Repeating the request while in flight costs nothing.
	again, _, err := m.Reveal(ctx, "l1")
	if err != nil {
		t.Fatalf("repeat reveal: %v", err)
	}
	if again.Status != feed.RevealInFlight {
		t.Errorf("status = %q, want %q", again.Status, feed.RevealInFlight)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("verification never completed")
	}

	clock.Advance(20 * time.Millisecond)
	s, err = m.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if !s.Reveal.Revealed["l1"] {
		t.Errorf("l1 not revealed after verification: %+v", s.Reveal)
	}
}

func TestManagerEarnAttemptCooldown(t *testing.T) {
	m, store, clock := newTestManager(t, time.Millisecond)
	ctx := sessionCtx(t, store)

	if _, err := m.EarnAttempt(ctx); err != nil {
		t.Fatalf("first earn: %v", err)
	}
	clock.Advance(10 * time.Second)

	state, err := m.EarnAttempt(ctx)
	var cerr *feed.CooldownError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *feed.CooldownError, got %v", err)
	}
	if cerr.Seconds() != 20 {
		t.Errorf("remaining = %d, want 20", cerr.Seconds())
	}
	if state.RemainingAttempts != 1 {
		t.Errorf("attempts = %d, want 1", state.RemainingAttempts)
	}

	clock.Advance(20 * time.Second)
	state, err = m.EarnAttempt(ctx)
	if err != nil {
		t.Fatalf("earn after cooldown: %v", err)
	}
	if state.RemainingAttempts != 2 {
		t.Errorf("attempts = %d, want 2", state.RemainingAttempts)
	}
}

func TestManagerUser(t *testing.T) {
	m, store, _ := newTestManager(t, time.Millisecond)
	ctx := sessionCtx(t, store)

	if err := m.SetUser(ctx, "u1"); err != nil {
		t.Fatalf("set user: %v", err)
	}
	if _, err := m.EarnAttempt(ctx); err != nil {
		t.Fatalf("earn: %v", err)
	}
	s, err := m.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if s.UserID != "u1" {
		t.Errorf("user = %q, want u1", s.UserID)
	}

	if err := m.ClearUser(ctx); err != nil {
		t.Fatalf("clear user: %v", err)
	}
	s, err = m.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if s.UserID != "" || s.Reveal.RemainingAttempts != 1 {
		t.Errorf("unexpected session after sign-out: %+v", s)
	}
}

func TestManagerWithoutSession(t *testing.T) {
	m, _, _ := newTestManager(t, time.Millisecond)
	if _, err := m.EarnAttempt(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.Current(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
