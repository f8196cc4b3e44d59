package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

// steppingClock advances by step on every call.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func TestCountdownRunsToZero(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := &steppingClock{now: base, step: time.Second}
	var got []int
	err := Countdown(context.Background(), base.Add(3*time.Second), time.Millisecond, clock.Now, func(s int) {
		got = append(got, s)
	})
	if err != nil {
		t.Fatalf("countdown: %v", err)
	}
	if diff := cmp.Diff([]int{3, 2, 1, 0}, got); diff != "" {
		t.Errorf("emitted seconds mismatch (-want +got):\n%s", diff)
	}
}

func TestCountdownRecomputesFromDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Each tick jumps 2.5s, as if ticks had been missed.
	clock := &steppingClock{now: base, step: 2500 * time.Millisecond}
	var got []int
	err := Countdown(context.Background(), base.Add(6*time.Second), time.Millisecond, clock.Now, func(s int) {
		got = append(got, s)
	})
	if err != nil {
		t.Fatalf("countdown: %v", err)
	}
	if diff := cmp.Diff([]int{6, 4, 1, 0}, got); diff != "" {
		t.Errorf("emitted seconds mismatch (-want +got):\n%s", diff)
	}
}

func TestCountdownExpiredDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	var got []int
	err := Countdown(context.Background(), base.Add(-time.Minute), time.Hour, func() time.Time { return base }, func(s int) {
		got = append(got, s)
	})
	if err != nil {
		t.Fatalf("countdown: %v", err)
	}
	if diff := cmp.Diff([]int{0}, got); diff != "" {
		t.Errorf("emitted seconds mismatch (-want +got):\n%s", diff)
	}
}

func TestCountdownStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	emitted := make(chan int, 16)
	done := make(chan error, 1)
	go func() {
		done <- Countdown(ctx, base.Add(time.Hour), time.Millisecond, func() time.Time { return base }, func(s int) {
			select {
			case emitted <- s:
			default:
			}
		})
	}()

	if s := <-emitted; s != 3600 {
		t.Errorf("first emission = %d, want 3600", s)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not stop after cancel")
	}
}
