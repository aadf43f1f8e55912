package cron

import (
	"context"
	"log/slog"
	"time"
)

// EventPurger is the subset of the store needed by the retention job.
// Defined here to avoid a dependency on the store package.
type EventPurger interface {
	PurgeEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditPurgeJob deletes audit log rows older than Retention.
type AuditPurgeJob struct {
	Store        EventPurger
	Retention    time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 3 * * *"
}

var _ Job = (*AuditPurgeJob)(nil)

// Name implements Job.
func (j *AuditPurgeJob) Name() string { return "audit_purge" }

// Schedule implements Job.
func (j *AuditPurgeJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 3 * * *"
}

// Run deletes rows received before now minus Retention.
func (j *AuditPurgeJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.Retention)
	purged, err := j.Store.PurgeEventsBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		j.Logger.Info("cron: purged audit events", "count", purged, "cutoff", cutoff)
	}
	return nil
}
