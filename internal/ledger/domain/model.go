// Package domain contains the wallet and its append-only transaction ledger.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Wallet holds the prepaid balance for exactly one account. The balance is
// only ever mutated through ledger entries; Version backs the optimistic
// concurrency check that serializes those mutations.
type Wallet struct {
	AccountID           snowflake.ID    `gorm:"primaryKey" json:"account_id"`
	Balance             decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"balance"`
	InitialBalance      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"initial_balance"`
	Currency            string          `gorm:"type:text;not null" json:"currency"`
	Version             int64           `gorm:"not null;default:0" json:"-"`
	LowBalanceFlaggedAt *time.Time      `json:"low_balance_flagged_at,omitempty"`
	CreatedAt           time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null" json:"updated_at"`
}

func (Wallet) TableName() string { return "wallets" }

type TransactionType string

const (
	TransactionDebit  TransactionType = "debit"
	TransactionCredit TransactionType = "credit"
)

// Transaction is one immutable ledger entry. Amount is signed: debits are
// negative, credits positive, so the ledger sums to the balance delta.
type Transaction struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	AccountID     snowflake.ID    `gorm:"not null;index" json:"account_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Type          TransactionType `gorm:"type:text;not null" json:"type"`
	UsageRecordID *snowflake.ID   `gorm:"index" json:"usage_record_id,omitempty"`
	Note          string          `gorm:"type:text" json:"note"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
}

func (Transaction) TableName() string { return "ledger_transactions" }

var (
	ErrWalletNotFound           = errors.New("wallet_not_found")
	ErrInvalidAmount            = errors.New("invalid_amount")
	ErrConcurrentUpdateConflict = errors.New("concurrent_update_conflict")
)
