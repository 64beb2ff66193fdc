package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	ratingdomain "github.com/voxbilllabs/voxbill/internal/rating/domain"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) ratingdomain.Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*ratingdomain.UsageRecord, error) {
	var record ratingdomain.UsageRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) Insert(ctx context.Context, record *ratingdomain.UsageRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) MarkRated(ctx context.Context, record *ratingdomain.UsageRecord) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE usage_records
		 SET cost = ?, rated_destination = ?, status = ?
		 WHERE id = ? AND status IN (?, ?)`,
		record.Cost,
		record.RatedDestination,
		ratingdomain.UsageRated,
		record.ID,
		ratingdomain.UsagePending,
		ratingdomain.UsageUnrated,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ratingdomain.ErrUsageAlreadyRated
	}
	return nil
}

func (r *repository) MarkUnrated(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE usage_records SET status = ? WHERE id = ? AND status = ?`,
		ratingdomain.UsageUnrated,
		id,
		ratingdomain.UsagePending,
	).Error
}

func (r *repository) ListRated(ctx context.Context, accountID snowflake.ID, start, end time.Time) ([]ratingdomain.UsageRecord, error) {
	var records []ratingdomain.UsageRecord
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ? AND start_time >= ? AND start_time < ?",
			accountID, ratingdomain.UsageRated, start, end).
		Order("start_time ASC").
		Find(&records).Error
	return records, err
}
