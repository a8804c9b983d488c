// Package maintenance holds background jobs that keep auth state tables small.
package maintenance

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ExpiredDeleter deletes rows that expired before now and reports how many were removed.
type ExpiredDeleter func(ctx context.Context, now time.Time) (int64, error)

// Pruner periodically removes expired sessions, invitations and password-reset tokens.
// Reads already ignore expired rows; pruning only reclaims space.
type Pruner struct {
	jobs map[string]ExpiredDeleter
	log  *slog.Logger
	now  func() time.Time
}

// NewPruner returns a Pruner running each named job. Nil jobs are skipped.
func NewPruner(jobs map[string]ExpiredDeleter, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	p := &Pruner{jobs: make(map[string]ExpiredDeleter, len(jobs)), log: log, now: time.Now}
	for name, fn := range jobs {
		if fn != nil {
			p.jobs[name] = fn
		}
	}
	return p
}

// PruneOnce runs every job once. A failing job does not stop the others; all failures are joined.
func (p *Pruner) PruneOnce(ctx context.Context) (map[string]int64, error) {
	now := p.now().UTC()
	removed := make(map[string]int64, len(p.jobs))
	var errs []error
	for name, fn := range p.jobs {
		n, err := fn(ctx, now)
		if err != nil {
			p.log.Error("prune failed", "job", name, "error", err)
			errs = append(errs, err)
			continue
		}
		removed[name] = n
		if n > 0 {
			p.log.Info("pruned expired rows", "job", name, "count", n)
		}
	}
	return removed, errors.Join(errs...)
}

// Run prunes immediately and then every interval until ctx is cancelled.
func (p *Pruner) Run(ctx context.Context, interval time.Duration) {
	_, _ = p.PruneOnce(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = p.PruneOnce(ctx)
		}
	}
}
