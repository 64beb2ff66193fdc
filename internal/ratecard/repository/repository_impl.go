package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ratecarddomain "github.com/voxbilllabs/voxbill/internal/ratecard/domain"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) ratecarddomain.Repository {
	return &repository{db: db}
}

// FindBestMatch pushes longest-prefix-match into SQL: among active codes that
// prefix the number, longest wins, equal lengths break on lowest id.
func (r *repository) FindBestMatch(ctx context.Context, number string) (*ratecarddomain.BaseRate, error) {
	var rate ratecarddomain.BaseRate
	err := r.db.WithContext(ctx).Raw(
		`SELECT * FROM base_rates
		 WHERE active = ? AND ? LIKE destination_code || '%'
		 ORDER BY length(destination_code) DESC, id ASC
		 LIMIT 1`,
		true,
		number,
	).Scan(&rate).Error
	if err != nil {
		return nil, err
	}
	if rate.ID == 0 {
		return nil, nil
	}
	return &rate, nil
}

func (r *repository) List(ctx context.Context) ([]ratecarddomain.BaseRate, error) {
	var rates []ratecarddomain.BaseRate
	err := r.db.WithContext(ctx).
		Order("destination_code ASC").
		Find(&rates).Error
	return rates, err
}

func (r *repository) Upsert(ctx context.Context, rate *ratecarddomain.BaseRate) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "destination_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"destination_name", "buy_price_per_minute", "active", "updated_at",
		}),
	}).Create(rate).Error
}
