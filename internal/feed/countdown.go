package feed

import (
	"context"
	"time"
)

// Countdown calls emit with the seconds left until deadline, once immediately
// and then every tick, until it has emitted 0 or ctx is done.
//
// The remaining time is recomputed from now() on every tick, so skipped or
// late ticks never drift the display.
func Countdown(ctx context.Context, deadline time.Time, tick time.Duration, now func() time.Time, emit func(seconds int)) error {
	left := RemainingCooldownSeconds(now(), deadline)
	emit(left)
	if left == 0 {
		return nil
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			left = RemainingCooldownSeconds(now(), deadline)
			emit(left)
			if left == 0 {
				return nil
			}
		}
	}
}
