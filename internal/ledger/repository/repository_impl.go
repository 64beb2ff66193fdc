package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	ledgerdomain "github.com/voxbilllabs/voxbill/internal/ledger/domain"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) ledgerdomain.Repository {
	return &repository{db: db}
}

func (r *repository) GetWallet(ctx context.Context, accountID snowflake.ID) (*ledgerdomain.Wallet, error) {
	var wallet ledgerdomain.Wallet
	err := r.db.WithContext(ctx).First(&wallet, "account_id = ?", accountID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) CreateWallet(ctx context.Context, wallet *ledgerdomain.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) UpdateBalanceVersioned(ctx context.Context, wallet *ledgerdomain.Wallet, expectedVersion int64) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE wallets
		 SET balance = ?, version = version + 1,
		     low_balance_flagged_at = ?,
		     updated_at = ?
		 WHERE account_id = ? AND version = ?`,
		wallet.Balance,
		wallet.LowBalanceFlaggedAt,
		time.Now().UTC(),
		wallet.AccountID,
		expectedVersion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) InsertTransaction(ctx context.Context, txn *ledgerdomain.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, accountID snowflake.ID) ([]ledgerdomain.Transaction, error) {
	var txns []ledgerdomain.Transaction
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Find(&txns).Error
	return txns, err
}

func (r *repository) SumTransactions(ctx context.Context, accountID snowflake.ID) (decimal.Decimal, error) {
	var raw decimal.NullDecimal
	err := r.db.WithContext(ctx).Raw(
		`SELECT SUM(amount) FROM ledger_transactions WHERE account_id = ?`,
		accountID,
	).Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !raw.Valid {
		return decimal.Zero, nil
	}
	return raw.Decimal, nil
}
