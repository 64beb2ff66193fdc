package scheduler

import (
	"context"

	"go.uber.org/zap"

	ratingdomain "github.com/voxbilllabs/voxbill/internal/rating/domain"
)

// UsageRetentionJob purges rated usage records past the retention window.
// Invoices keep their own line item totals, so old records are safe to drop.
func (s *Scheduler) UsageRetentionJob(ctx context.Context) error {
	retentionDays := s.cfg.Scheduler.UsageRetentionDays
	if retentionDays <= 0 {
		return nil
	}

	cutoff := s.clock.Now(ctx).AddDate(0, 0, -retentionDays)
	s.log.Info("purging rated usage", zap.Time("cutoff", cutoff))

	result := s.db.WithContext(ctx).
		Where("status = ? AND start_time < ?", ratingdomain.UsageRated, cutoff).
		Delete(&ratingdomain.UsageRecord{})
	if result.Error != nil {
		return result.Error
	}

	s.log.Info("usage purge completed", zap.Int64("deleted", result.RowsAffected))
	return nil
}
