package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Entry is one balance mutation to apply. Amount is the unsigned magnitude;
// the type decides the sign written to the ledger.
type Entry struct {
	AccountID     snowflake.ID
	Amount        decimal.Decimal
	Type          TransactionType
	UsageRecordID *snowflake.ID
	Note          string
}

type Service interface {
	// Debit charges the account. It succeeds even when the balance goes
	// negative; the wallet is flagged instead of the charge being refused,
	// since the underlying usage already happened.
	Debit(ctx context.Context, entry Entry) (*Transaction, error)

	// Credit tops the account up (payments, adjustments).
	Credit(ctx context.Context, entry Entry) (*Transaction, error)

	// Apply runs a single version-checked attempt inside the caller's
	// transaction, for operations that compose the balance mutation with
	// their own writes. Returns ErrConcurrentUpdateConflict on a lost race;
	// the caller owns the retry.
	Apply(ctx context.Context, tx *gorm.DB, entry Entry) (*Transaction, error)

	History(ctx context.Context, accountID snowflake.ID) ([]Transaction, error)
	GetWallet(ctx context.Context, accountID snowflake.ID) (*Wallet, error)
	EnsureWallet(ctx context.Context, accountID snowflake.ID, currency string, initial decimal.Decimal) (*Wallet, error)
}

type Repository interface {
	GetWallet(ctx context.Context, accountID snowflake.ID) (*Wallet, error)
	CreateWallet(ctx context.Context, wallet *Wallet) error
	// UpdateBalanceVersioned writes the new balance and low-balance flag iff
	// the version still matches; reports false when another writer got there
	// first.
	UpdateBalanceVersioned(ctx context.Context, wallet *Wallet, expectedVersion int64) (bool, error)
	InsertTransaction(ctx context.Context, txn *Transaction) error
	ListTransactions(ctx context.Context, accountID snowflake.ID) ([]Transaction, error)
	SumTransactions(ctx context.Context, accountID snowflake.ID) (decimal.Decimal, error)
}
