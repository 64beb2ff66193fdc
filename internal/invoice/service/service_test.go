package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/voxbilllabs/voxbill/internal/account/domain"
	accountrepository "github.com/voxbilllabs/voxbill/internal/account/repository"
	"github.com/voxbilllabs/voxbill/internal/config"
	invoicedomain "github.com/voxbilllabs/voxbill/internal/invoice/domain"
	ledgerdomain "github.com/voxbilllabs/voxbill/internal/ledger/domain"
	ledgerservice "github.com/voxbilllabs/voxbill/internal/ledger/service"
	ratingdomain "github.com/voxbilllabs/voxbill/internal/rating/domain"
	"github.com/voxbilllabs/voxbill/internal/tax"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fixedClock pins invoice issue dates for deterministic assertions.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now(context.Context) time.Time { return c.now }

type testStack struct {
	db      *gorm.DB
	node    *snowflake.Node
	clock   fixedClock
	invoice invoicedomain.Service
	ledger  ledgerdomain.Service
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:invoice_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	models := []any{
		&accountdomain.Account{},
		&ledgerdomain.Wallet{},
		&ledgerdomain.Transaction{},
		&ratingdomain.UsageRecord{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
	}
	require.NoError(t, db.Migrator().DropTable(models...))
	require.NoError(t, db.AutoMigrate(models...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	cfg := &config.Config{}
	cfg.Billing.InvoiceDueDays = 30

	clk := fixedClock{now: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}

	ledger := ledgerservice.NewService(ledgerservice.ServiceParam{DB: db, Log: log, Cfg: cfg, GenID: node})
	invoice := NewService(ServiceParam{
		DB:       db,
		Log:      log,
		Cfg:      cfg,
		GenID:    node,
		Clock:    clk,
		Accounts: accountrepository.NewRepository(db),
		Ledger:   ledger,
		Tax:      tax.NewResolver(),
	})

	return &testStack{db: db, node: node, clock: clk, invoice: invoice, ledger: ledger}
}

func (s *testStack) seedAccount(t *testing.T, country, taxID string) snowflake.ID {
	t.Helper()
	account := accountdomain.Account{
		ID:          s.node.Generate(),
		Name:        "Subscriber",
		CountryCode: country,
		TaxID:       taxID,
	}
	require.NoError(t, s.db.Create(&account).Error)
	_, err := s.ledger.EnsureWallet(context.Background(), account.ID, "USD", decimal.Zero)
	require.NoError(t, err)
	return account.ID
}

func (s *testStack) seedRatedCall(t *testing.T, accountID snowflake.ID, destination string, seconds int, cost string, start time.Time) {
	t.Helper()
	record := ratingdomain.UsageRecord{
		ID:                s.node.Generate(),
		AccountID:         accountID,
		Kind:              ratingdomain.UsageCall,
		DestinationNumber: "000",
		DurationSeconds:   seconds,
		StartTime:         start,
		Cost:              decimal.NullDecimal{Decimal: dec(cost), Valid: true},
		RatedDestination:  destination,
		Status:            ratingdomain.UsageRated,
		CreatedAt:         start,
	}
	require.NoError(t, s.db.Create(&record).Error)
}

var (
	periodStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
)

func TestGenerateSwedishVATWorkedExample(t *testing.T) {
	// Three UK calls of 10 minutes, $0.06 combined, one US call of 2 minutes
	// at $0.03: two line items, subtotal 0.09, 25% VAT 0.0225, total 0.1125.
	stack := newTestStack(t)
	accountID := stack.seedAccount(t, "SE", "")

	mid := periodStart.Add(240 * time.Hour)
	stack.seedRatedCall(t, accountID, "United Kingdom", 240, "0.02", mid)
	stack.seedRatedCall(t, accountID, "United Kingdom", 180, "0.02", mid.Add(time.Hour))
	stack.seedRatedCall(t, accountID, "United Kingdom", 180, "0.02", mid.Add(2*time.Hour))
	stack.seedRatedCall(t, accountID, "United States", 120, "0.03", mid.Add(3*time.Hour))

	invoice, err := stack.invoice.Generate(context.Background(), accountID, periodStart, periodEnd)
	require.NoError(t, err)

	require.Len(t, invoice.LineItems, 2)
	assert.True(t, invoice.Subtotal.Equal(dec("0.09")), "subtotal %s", invoice.Subtotal)
	assert.True(t, invoice.TaxAmount.Equal(dec("0.0225")), "tax %s", invoice.TaxAmount)
	assert.True(t, invoice.Total.Equal(dec("0.1125")), "total %s", invoice.Total)
	assert.Equal(t, invoicedomain.InvoicePending, invoice.Status)
	assert.Equal(t, stack.clock.now.AddDate(0, 0, 30), invoice.DueDate)

	uk := invoice.LineItems[0]
	assert.Equal(t, "United Kingdom", uk.Description)
	assert.True(t, uk.QuantityMinutes.Equal(dec("10")), "quantity %s", uk.QuantityMinutes)
	assert.True(t, uk.Total.Equal(dec("0.06")))
}

func TestGenerateMergesPrefixesUnderOneLabel(t *testing.T) {
	stack := newTestStack(t)
	accountID := stack.seedAccount(t, "US", "")

	mid := periodStart.Add(time.Hour)
	// Fixed and mobile prefixes both rate under the same country label.
	stack.seedRatedCall(t, accountID, "Sweden", 60, "0.02", mid)
	stack.seedRatedCall(t, accountID, "Sweden", 120, "0.05", mid.Add(time.Hour))

	invoice, err := stack.invoice.Generate(context.Background(), accountID, periodStart, periodEnd)
	require.NoError(t, err)

	require.Len(t, invoice.LineItems, 1)
	assert.True(t, invoice.LineItems[0].QuantityMinutes.Equal(dec("3")))
	assert.True(t, invoice.LineItems[0].Total.Equal(dec("0.07")))
	assert.True(t, invoice.TaxAmount.IsZero(), "non-EU account pays no VAT")
}

func TestGenerateEmptyPeriodYieldsZeroInvoice(t *testing.T) {
	stack := newTestStack(t)
	accountID := stack.seedAccount(t, "SE", "")

	invoice, err := stack.invoice.Generate(context.Background(), accountID, periodStart, periodEnd)
	require.NoError(t, err)
	assert.Empty(t, invoice.LineItems)
	assert.True(t, invoice.Total.IsZero())
	assert.Equal(t, invoicedomain.InvoicePending, invoice.Status)
}

func TestGenerateExcludesUnratedAndOutOfRange(t *testing.T) {
	stack := newTestStack(t)
	accountID := stack.seedAccount(t, "SE", "")

	mid := periodStart.Add(time.Hour)
	stack.seedRatedCall(t, accountID, "United Kingdom", 60, "0.02", mid)

	unrated := ratingdomain.UsageRecord{
		ID:                stack.node.Generate(),
		AccountID:         accountID,
		Kind:              ratingdomain.UsageCall,
		DestinationNumber: "999",
		DurationSeconds:   60,
		StartTime:         mid,
		Status:            ratingdomain.UsageUnrated,
		CreatedAt:         mid,
	}
	require.NoError(t, stack.db.Create(&unrated).Error)

	stack.seedRatedCall(t, accountID, "United Kingdom", 60, "0.99", periodEnd) // end is exclusive

	invoice, err := stack.invoice.Generate(context.Background(), accountID, periodStart, periodEnd)
	require.NoError(t, err)
	require.Len(t, invoice.LineItems, 1)
	assert.True(t, invoice.Subtotal.Equal(dec("0.02")), "got %s", invoice.Subtotal)
}

func TestGenerateEUReverseCharge(t *testing.T) {
	stack := newTestStack(t)
	accountID := stack.seedAccount(t, "DE", "DE123456789")

	stack.seedRatedCall(t, accountID, "Germany", 60, "0.10", periodStart.Add(time.Hour))

	invoice, err := stack.invoice.Generate(context.Background(), accountID, periodStart, periodEnd)
	require.NoError(t, err)
	assert.True(t, invoice.TaxAmount.IsZero())
	assert.True(t, invoice.Total.Equal(invoice.Subtotal))
}

func TestPayFlipsPendingAndCreditsWallet(t *testing.T) {
	stack := newTestStack(t)
	accountID := stack.seedAccount(t, "SE", "")
	stack.seedRatedCall(t, accountID, "United Kingdom", 600, "0.06", periodStart.Add(time.Hour))

	invoice, err := stack.invoice.Generate(context.Background(), accountID, periodStart, periodEnd)
	require.NoError(t, err)

	paid, err := stack.invoice.Pay(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoicePaid, paid.Status)
	require.NotNil(t, paid.PaidDate)

	history, err := stack.ledger.History(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ledgerdomain.TransactionCredit, history[0].Type)
	assert.True(t, history[0].Amount.Equal(invoice.Total))

	// Paid is terminal.
	_, err = stack.invoice.Pay(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceTransition)
	_, err = stack.invoice.Cancel(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceTransition)
}

func TestOverdueSweepAndCancel(t *testing.T) {
	stack := newTestStack(t)
	accountID := stack.seedAccount(t, "SE", "")

	// Issue with a due date already in the past relative to the sweep clock.
	cfgPast := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	invoice := invoicedomain.Invoice{
		ID:          stack.node.Generate(),
		AccountID:   accountID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Subtotal:    decimal.Zero,
		TaxAmount:   decimal.Zero,
		Total:       decimal.Zero,
		Status:      invoicedomain.InvoicePending,
		IssueDate:   cfgPast,
		DueDate:     cfgPast.AddDate(0, 0, 30),
	}
	require.NoError(t, stack.db.Create(&invoice).Error)

	flipped, err := stack.invoice.MarkOverdueSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, flipped)

	got, err := stack.invoice.GetByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceOverdue, got.Status)

	// Overdue invoices may still be cancelled, and cancelled is terminal.
	cancelled, err := stack.invoice.Cancel(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceCancelled, cancelled.Status)

	_, err = stack.invoice.Pay(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceTransition)
}

func TestGenerateRejectsInvertedPeriod(t *testing.T) {
	stack := newTestStack(t)
	accountID := stack.seedAccount(t, "SE", "")

	_, err := stack.invoice.Generate(context.Background(), accountID, periodEnd, periodStart)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoicePeriod)
}
