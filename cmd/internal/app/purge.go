package app

import (
	"context"
	"time"
)

// linkPurger is implemented by link stores that do not expire rows on their own.
type linkPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// runLinkPurge deletes expired magic links every interval until ctx is done.
func runLinkPurge(ctx context.Context, p linkPurger, every time.Duration, log Logger) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			purgeOnce(ctx, p, now, log)
		}
	}
}

func purgeOnce(ctx context.Context, p linkPurger, now time.Time, log Logger) {
	callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := p.PurgeExpired(callCtx, now)
	if err != nil {
		log.Warn("magiclink.purge.fail", "err", err)
		return
	}
	if n > 0 {
		log.Info("magiclink.purge", "deleted", n)
	}
}
