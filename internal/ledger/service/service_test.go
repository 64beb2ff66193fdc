package service

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voxbilllabs/voxbill/internal/config"
	ledgerdomain "github.com/voxbilllabs/voxbill/internal/ledger/domain"
	"github.com/voxbilllabs/voxbill/internal/ledger/repository"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T) (ledgerdomain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:ledger_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&ledgerdomain.Wallet{}, &ledgerdomain.Transaction{}))
	require.NoError(t, db.AutoMigrate(&ledgerdomain.Wallet{}, &ledgerdomain.Transaction{}))

	// sqlite takes a global write lock; a single pooled connection keeps
	// concurrent test writers from tripping over SQLITE_BUSY.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Billing.SuspendOnNegative = true

	svc := NewService(ServiceParam{DB: db, Log: zap.NewNop(), Cfg: cfg, GenID: node})
	return svc, db
}

func newWallet(t *testing.T, svc ledgerdomain.Service, initial string) snowflake.ID {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	accountID := node.Generate()

	_, err = svc.EnsureWallet(context.Background(), accountID, "USD", dec(initial))
	require.NoError(t, err)
	return accountID
}

func TestConcurrentDebitsDoNotLoseUpdates(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := newWallet(t, svc, "10.00")

	amounts := []string{"5.00", "3.00"}
	var wg sync.WaitGroup
	errs := make([]error, len(amounts))
	for i, amount := range amounts {
		wg.Add(1)
		go func(i int, amount string) {
			defer wg.Done()
			_, errs[i] = svc.Debit(context.Background(), ledgerdomain.Entry{
				AccountID: accountID,
				Amount:    dec(amount),
			})
		}(i, amount)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	wallet, err := svc.GetWallet(context.Background(), accountID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(dec("2.00")), "balance must be exactly 2, got %s", wallet.Balance)
}

func TestLedgerReconcilesToBalance(t *testing.T) {
	svc, db := newTestService(t)
	accountID := newWallet(t, svc, "20.00")
	ctx := context.Background()

	_, err := svc.Debit(ctx, ledgerdomain.Entry{AccountID: accountID, Amount: dec("4.50")})
	require.NoError(t, err)
	_, err = svc.Credit(ctx, ledgerdomain.Entry{AccountID: accountID, Amount: dec("10.00"), Note: "top-up"})
	require.NoError(t, err)
	_, err = svc.Debit(ctx, ledgerdomain.Entry{AccountID: accountID, Amount: dec("0.06")})
	require.NoError(t, err)

	wallet, err := svc.GetWallet(ctx, accountID)
	require.NoError(t, err)

	sum, err := repository.NewRepository(db).SumTransactions(ctx, accountID)
	require.NoError(t, err)

	assert.True(t, sum.Equal(wallet.Balance.Sub(wallet.InitialBalance)),
		"sum %s must equal balance %s minus initial %s", sum, wallet.Balance, wallet.InitialBalance)
}

func TestDebitBeyondBalanceSucceedsAndFlags(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := newWallet(t, svc, "1.00")
	ctx := context.Background()

	txn, err := svc.Debit(ctx, ledgerdomain.Entry{AccountID: accountID, Amount: dec("2.50")})
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(dec("-2.50")))

	wallet, err := svc.GetWallet(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(dec("-1.50")))
	assert.NotNil(t, wallet.LowBalanceFlaggedAt, "negative balance must flag the wallet")
}

func TestTopUpClearsLowBalanceFlag(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := newWallet(t, svc, "1.00")
	ctx := context.Background()

	_, err := svc.Debit(ctx, ledgerdomain.Entry{AccountID: accountID, Amount: dec("2.50")})
	require.NoError(t, err)

	wallet, err := svc.GetWallet(ctx, accountID)
	require.NoError(t, err)
	require.NotNil(t, wallet.LowBalanceFlaggedAt)
	flaggedAt := *wallet.LowBalanceFlaggedAt

	// A credit that leaves the balance negative keeps the original flag.
	_, err = svc.Credit(ctx, ledgerdomain.Entry{AccountID: accountID, Amount: dec("0.50")})
	require.NoError(t, err)
	wallet, err = svc.GetWallet(ctx, accountID)
	require.NoError(t, err)
	require.NotNil(t, wallet.LowBalanceFlaggedAt)
	assert.True(t, wallet.LowBalanceFlaggedAt.Equal(flaggedAt))

	// Recovering to a non-negative balance clears it.
	_, err = svc.Credit(ctx, ledgerdomain.Entry{AccountID: accountID, Amount: dec("5.00")})
	require.NoError(t, err)
	wallet, err = svc.GetWallet(ctx, accountID)
	require.NoError(t, err)
	assert.Nil(t, wallet.LowBalanceFlaggedAt, "top-up past zero must clear the flag")
	assert.True(t, wallet.Balance.Equal(dec("4.00")))
}

func TestStaleVersionIsRejected(t *testing.T) {
	svc, db := newTestService(t)
	accountID := newWallet(t, svc, "5.00")
	ctx := context.Background()

	repo := repository.NewRepository(db)
	wallet, err := repo.GetWallet(ctx, accountID)
	require.NoError(t, err)

	// First writer bumps the version.
	_, err = svc.Debit(ctx, ledgerdomain.Entry{AccountID: accountID, Amount: dec("1.00")})
	require.NoError(t, err)

	// A write against the stale snapshot must not apply.
	wallet.Balance = dec("0.01")
	ok, err := repo.UpdateBalanceVersioned(ctx, wallet, wallet.Version)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDebitUnknownWallet(t *testing.T) {
	svc, _ := newTestService(t)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	_, err = svc.Debit(context.Background(), ledgerdomain.Entry{
		AccountID: node.Generate(),
		Amount:    dec("1.00"),
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrWalletNotFound)
}

func TestNegativeAmountRejected(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := newWallet(t, svc, "5.00")

	_, err := svc.Debit(context.Background(), ledgerdomain.Entry{
		AccountID: accountID,
		Amount:    dec("-1.00"),
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAmount)
}

func TestHistoryNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	accountID := newWallet(t, svc, "10.00")
	ctx := context.Background()

	_, err := svc.Debit(ctx, ledgerdomain.Entry{AccountID: accountID, Amount: dec("1.00")})
	require.NoError(t, err)
	_, err = svc.Credit(ctx, ledgerdomain.Entry{AccountID: accountID, Amount: dec("2.00")})
	require.NoError(t, err)

	history, err := svc.History(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ledgerdomain.TransactionCredit, history[0].Type)
	assert.Equal(t, ledgerdomain.TransactionDebit, history[1].Type)
}
