package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartBackgroundJobs warms the listing cache, retrying every interval until
// the first load succeeds or ctx is done.
func (a *Application) StartBackgroundJobs(ctx context.Context) {
	go a.warmListings(ctx, 10*time.Second)
}

func (a *Application) warmListings(ctx context.Context, interval time.Duration) {
	if a.tryWarm(ctx) {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.tryWarm(ctx) {
				return
			}
		}
	}
}

func (a *Application) tryWarm(ctx context.Context) bool {
	loadCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := a.listings.Refresh(loadCtx); err != nil {
		zap.L().Warn("listing cache warm-up failed, will retry", zap.Error(err))
		return false
	}
	zap.L().Info("listing cache warmed", zap.Int("count", a.listings.Len()))
	return true
}
