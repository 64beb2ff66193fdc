package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	invoicedomain "github.com/voxbilllabs/voxbill/internal/invoice/domain"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) invoicedomain.Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		First(&invoice, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID snowflake.ID) ([]invoicedomain.Invoice, error) {
	var invoices []invoicedomain.Invoice
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("account_id = ?", accountID).
		Order("issue_date DESC, id DESC").
		Find(&invoices).Error
	return invoices, err
}

func (r *repository) Insert(ctx context.Context, invoice *invoicedomain.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id snowflake.ID, from []invoicedomain.InvoiceStatus, to invoicedomain.InvoiceStatus, paidAt *time.Time) (bool, error) {
	updates := map[string]any{"status": to}
	if paidAt != nil {
		updates["paid_date"] = paidAt
	}
	result := r.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ExistsForPeriod(ctx context.Context, accountID snowflake.ID, periodStart time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("account_id = ? AND period_start = ?", accountID, periodStart).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("status = ? AND due_date < ?", invoicedomain.InvoicePending, now).
		Update("status", invoicedomain.InvoiceOverdue)
	return result.RowsAffected, result.Error
}
