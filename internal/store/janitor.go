package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Janitor periodically drops wizard sessions nobody has touched for a while.
type Janitor struct {
	store     Store
	every     time.Duration
	retention time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// NewJanitor creates a janitor that runs every interval and purges sessions
// idle for longer than retention.
func NewJanitor(s Store, every, retention time.Duration, log *zap.Logger) *Janitor {
	return &Janitor{store: s, every: every, retention: retention, log: log, now: time.Now}
}

// Run purges once immediately and then on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.every)
	defer ticker.Stop()

	j.log.Info("session janitor starting", zap.Duration("interval", j.every), zap.Duration("retention", j.retention))
	j.purge(ctx)
	for {
		select {
		case <-ticker.C:
			j.purge(ctx)
		case <-ctx.Done():
			j.log.Info("session janitor stopping")
			return
		}
	}
}

func (j *Janitor) purge(ctx context.Context) {
	n, err := j.store.PurgeSessions(ctx, j.now().Add(-j.retention))
	if err != nil {
		j.log.Error("failed to purge wizard sessions", zap.Error(err))
		return
	}
	if n > 0 {
		j.log.Info("purged idle wizard sessions", zap.Int64("count", n))
	}
}
