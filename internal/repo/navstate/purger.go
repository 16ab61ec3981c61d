package navstate

import (
	"context"
	"time"

	"github.com/mkrupp/authui/internal/infra/logging"
)

// DefaultPurgeInterval is used when RunPurger is given a non-positive interval.
const DefaultPurgeInterval = time.Minute

// RunPurger calls repo.Purge every interval until ctx is cancelled.
func RunPurger(ctx context.Context, repo Repository, interval time.Duration) {
	log := logging.GetLogger("repo.navstate.purger")

	if interval <= 0 {
		interval = DefaultPurgeInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := repo.Purge(ctx); err != nil && ctx.Err() == nil {
				log.ErrorContext(ctx, "purge navigation states failed", "error", err)
			}
		}
	}
}
