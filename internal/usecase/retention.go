package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsPublisher/internal/logging"
	"NewsPublisher/internal/ports"
)

// RetentionJobKey names the recurring audit pruning job.
const RetentionJobKey = "audit_retention"

// Retention prunes old audit entries.
type Retention struct {
	audit ports.AuditLog
	keep  time.Duration
	log   *slog.Logger
	now   func() time.Time
}

// NewRetention keeps audit entries for days days.
func NewRetention(audit ports.AuditLog, days int, log *slog.Logger) *Retention {
	if days <= 0 {
		days = 30
	}
	return &Retention{
		audit: audit,
		keep:  time.Duration(days) * 24 * time.Hour,
		log:   logging.OrDiscard(log).With("component", "retention"),
		now:   time.Now,
	}
}

// Prune deletes entries older than the retention window.
func (r *Retention) Prune(ctx context.Context) (int64, error) {
	cutoff := r.now().UTC().Add(-r.keep)
	removed, err := r.audit.PruneAudit(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	r.log.Info("audit log pruned", "removed", removed, "cutoff", cutoff)
	return removed, nil
}

// Start registers Prune on the scheduler.
func (r *Retention) Start(driver ports.Scheduler, every time.Duration) {
	driver.Schedule(RetentionJobKey, every, func(ctx context.Context) {
		if _, err := r.Prune(ctx); err != nil {
			r.log.Error("audit pruning failed", "error", err)
		}
	})
}
