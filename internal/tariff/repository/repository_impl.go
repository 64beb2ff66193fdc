package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	tariffdomain "github.com/voxbilllabs/voxbill/internal/tariff/domain"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) tariffdomain.Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*tariffdomain.Plan, error) {
	var plan tariffdomain.Plan
	err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) List(ctx context.Context) ([]tariffdomain.Plan, error) {
	var plans []tariffdomain.Plan
	err := r.db.WithContext(ctx).Order("name ASC").Find(&plans).Error
	return plans, err
}

func (r *repository) Save(ctx context.Context, plan *tariffdomain.Plan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Delete(&tariffdomain.Plan{}, "id = ?", id).Error
}
