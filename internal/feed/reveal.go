package feed

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"time"
)

// Defaults of the reward mechanic.
const (
	DefaultRevealLatency = time.Second
	DefaultPromoCooldown = 30 * time.Second
)

var (
	// ErrNoAttemptsRemaining is returned when a reveal is requested with no attempts left.
	ErrNoAttemptsRemaining = errors.New("no reveal attempts remaining")
	// ErrCooldownActive is returned when a promo interaction arrives before the cooldown ends.
	ErrCooldownActive = errors.New("promo cooldown active")
)

// CooldownError carries the time left on an active cooldown.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%v: %ds remaining", ErrCooldownActive, e.Seconds())
}

// Unwrap makes errors.Is(err, ErrCooldownActive) hold.
func (e *CooldownError) Unwrap() error { return ErrCooldownActive }

// Seconds is the remaining cooldown rounded up to whole seconds.
func (e *CooldownError) Seconds() int { return ceilSeconds(e.Remaining) }

// RevealState is the reward state of one session.
//
// Values are treated as immutable: every transition returns a new RevealState
// and never mutates the maps of its receiver.
type RevealState struct {
	RemainingAttempts int                  `json:"remaining_attempts"`
	Revealed          map[string]bool      `json:"revealed,omitempty"`
	Pending           map[string]time.Time `json:"pending,omitempty"` // listing id -> ready at
	CooldownUntil     time.Time            `json:"cooldown_until"`
}

// RevealStatus describes the outcome of a successful reveal request.
type RevealStatus string

// Reveal outcomes.
const (
	// RevealStarted means an attempt was consumed and verification is running.
	RevealStarted RevealStatus = "started"
	// RevealInFlight means a verification for the same listing is already running.
	RevealInFlight RevealStatus = "in_flight"
	// RevealDone means the contact was already revealed.
	RevealDone RevealStatus = "revealed"
)

// RevealResult is returned by a successful Reveal.
type RevealResult struct {
	Status  RevealStatus `json:"status"`
	ReadyAt time.Time    `json:"ready_at"`
}

func (s RevealState) clone() RevealState {
	s.Revealed = maps.Clone(s.Revealed)
	s.Pending = maps.Clone(s.Pending)
	return s
}

// Settle promotes every pending reveal whose verification has finished by now.
func (s RevealState) Settle(now time.Time) RevealState {
	due := false
	for _, at := range s.Pending {
		if !now.Before(at) {
			due = true
			break
		}
	}
	if !due {
		return s
	}

	next := s.clone()
	if next.Revealed == nil {
		next.Revealed = make(map[string]bool)
	}
	for id, at := range next.Pending {
		if !now.Before(at) {
			next.Revealed[id] = true
			delete(next.Pending, id)
		}
	}
	if len(next.Pending) == 0 {
		next.Pending = nil
	}
	return next
}

// IsRevealed reports whether the contact of id is visible at now.
func (s RevealState) IsRevealed(id string, now time.Time) bool {
	if s.Revealed[id] {
		return true
	}
	at, ok := s.Pending[id]
	return ok && !now.Before(at)
}

// Reveal consumes one attempt to unlock the contact of id.
//
// The attempt is reserved immediately and the contact becomes visible once
// latency has elapsed. A listing that is already revealed or in flight
// succeeds again without consuming another attempt. With no attempts left it
// fails with ErrNoAttemptsRemaining and the state is returned unchanged.
func (s RevealState) Reveal(id string, now time.Time, latency time.Duration) (RevealState, RevealResult, error) {
	s = s.Settle(now)

	if s.Revealed[id] {
		return s, RevealResult{Status: RevealDone, ReadyAt: now}, nil
	}
	if at, ok := s.Pending[id]; ok {
		return s, RevealResult{Status: RevealInFlight, ReadyAt: at}, nil
	}
	if s.RemainingAttempts <= 0 {
		return s, RevealResult{}, ErrNoAttemptsRemaining
	}

	readyAt := now.Add(max(latency, 0))
	next := s.clone()
	next.RemainingAttempts--
	if next.Pending == nil {
		next.Pending = make(map[string]time.Time)
	}
	next.Pending[id] = readyAt
	return next.Settle(now), RevealResult{Status: RevealStarted, ReadyAt: readyAt}, nil
}

// RegisterPromoInteraction grants one attempt and starts the cooldown.
// While a cooldown is running it fails with a *CooldownError and the state is
// returned unchanged. There is one cooldown per session, shared by every slot.
func (s RevealState) RegisterPromoInteraction(now time.Time, cooldown time.Duration) (RevealState, error) {
	if now.Before(s.CooldownUntil) {
		return s, &CooldownError{Remaining: s.CooldownUntil.Sub(now)}
	}
	next := s.clone()
	next.RemainingAttempts++
	next.CooldownUntil = now.Add(cooldown)
	return next, nil
}

// CooldownSeconds is RemainingCooldownSeconds for this state.
func (s RevealState) CooldownSeconds(now time.Time) int {
	return RemainingCooldownSeconds(now, s.CooldownUntil)
}

// RemainingCooldownSeconds is the time from now until cooldownUntil, rounded up
// to whole seconds, and never negative.
func RemainingCooldownSeconds(now, cooldownUntil time.Time) int {
	return ceilSeconds(cooldownUntil.Sub(now))
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
