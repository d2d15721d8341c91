package services

import (
	"context"
	"time"

	applog "storefront/internal/log"
)

// Evicter drops in-memory session state last used before cutoff.
type Evicter interface {
	Evict(cutoff time.Time) int
}

// SweepIdle evicts state idle for longer than idle, checking every interval,
// until ctx is done.
func SweepIdle(ctx context.Context, every, idle time.Duration, evicters ...Evicter) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			cutoff := now.Add(-idle)
			n := 0
			for _, e := range evicters {
				n += e.Evict(cutoff)
			}
			if n > 0 {
				applog.Info(nil, "session.evicted", map[string]any{"count": n, "idle": idle.String()})
			}
		}
	}
}
