package scheduler

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
	invoiceservice "github.com/voxbilllabs/voxbill/internal/invoice/service"
	ledgerdomain "github.com/voxbilllabs/voxbill/internal/ledger/domain"
	ledgerservice "github.com/voxbilllabs/voxbill/internal/ledger/service"
	ratingdomain "github.com/voxbilllabs/voxbill/internal/rating/domain"
	"github.com/voxbilllabs/voxbill/internal/tax"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now(context.Context) time.Time { return c.now }

func newTestScheduler(t *testing.T, now time.Time) (*Scheduler, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:scheduler_test?mode=memory&cache=shared"), &gorm.Config{})
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
	cfg.Scheduler.MonthlyInvoicing = true

	clk := fixedClock{now: now}
	accounts := accountrepository.NewRepository(db)
	ledger := ledgerservice.NewService(ledgerservice.ServiceParam{DB: db, Log: log, Cfg: cfg, GenID: node})
	invoice := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB: db, Log: log, Cfg: cfg, GenID: node, Clock: clk,
		Accounts: accounts, Ledger: ledger, Tax: tax.NewResolver(),
	})

	sched := NewScheduler(SchedulerParam{
		Cfg: cfg, Log: log, DB: db, Clock: clk,
		InvoiceSvc: invoice, Accounts: accounts,
	})
	return sched, db, node
}

func seedRatedUsage(t *testing.T, db *gorm.DB, node *snowflake.Node, accountID snowflake.ID, at time.Time, cost string) {
	t.Helper()
	record := ratingdomain.UsageRecord{
		ID:                node.Generate(),
		AccountID:         accountID,
		Kind:              ratingdomain.UsageCall,
		DestinationNumber: "46701234567",
		DurationSeconds:   60,
		StartTime:         at,
		Cost:              decimal.NullDecimal{Decimal: decimal.RequireFromString(cost), Valid: true},
		RatedDestination:  "Sweden",
		Status:            ratingdomain.UsageRated,
		CreatedAt:         at,
	}
	require.NoError(t, db.Create(&record).Error)
}

func TestMonthlyInvoiceJobIsIdempotent(t *testing.T) {
	now := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	sched, db, node := newTestScheduler(t, now)
	ctx := context.Background()

	account := accountdomain.Account{ID: node.Generate(), Name: "Sub", CountryCode: "US"}
	require.NoError(t, db.Create(&account).Error)
	seedRatedUsage(t, db, node, account.ID, time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC), "0.06")

	require.NoError(t, sched.MonthlyInvoiceJob(ctx))
	require.NoError(t, sched.MonthlyInvoiceJob(ctx))

	var invoices []invoicedomain.Invoice
	require.NoError(t, db.Find(&invoices).Error)
	require.Len(t, invoices, 1)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), invoices[0].PeriodStart.UTC())
	assert.True(t, invoices[0].Subtotal.Equal(decimal.RequireFromString("0.06")),
		"subtotal = %s", invoices[0].Subtotal)
}

func TestMonthlyInvoiceJobDisabled(t *testing.T) {
	now := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	sched, db, node := newTestScheduler(t, now)
	sched.cfg.Scheduler.MonthlyInvoicing = false
	ctx := context.Background()

	account := accountdomain.Account{ID: node.Generate(), Name: "Sub", CountryCode: "US"}
	require.NoError(t, db.Create(&account).Error)

	require.NoError(t, sched.MonthlyInvoiceJob(ctx))

	var count int64
	require.NoError(t, db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOverdueSweepJob(t *testing.T) {
	now := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	sched, db, node := newTestScheduler(t, now)
	ctx := context.Background()

	pastDue := invoicedomain.Invoice{
		ID:        node.Generate(),
		AccountID: node.Generate(),
		Status:    invoicedomain.InvoicePending,
		IssueDate: now.AddDate(0, -2, 0),
		DueDate:   now.AddDate(0, -1, 0),
	}
	require.NoError(t, db.Create(&pastDue).Error)

	require.NoError(t, sched.OverdueSweepJob(ctx))

	var reloaded invoicedomain.Invoice
	require.NoError(t, db.First(&reloaded, "id = ?", pastDue.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceOverdue, reloaded.Status)
}

func TestUsageRetentionJob(t *testing.T) {
	now := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	sched, db, node := newTestScheduler(t, now)
	sched.cfg.Scheduler.UsageRetentionDays = 30
	ctx := context.Background()

	accountID := node.Generate()
	seedRatedUsage(t, db, node, accountID, now.AddDate(0, 0, -90), "0.06")
	seedRatedUsage(t, db, node, accountID, now.AddDate(0, 0, -5), "0.07")

	require.NoError(t, sched.UsageRetentionJob(ctx))

	var remaining []ratingdomain.UsageRecord
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.True(t, remaining[0].Cost.Decimal.Equal(decimal.RequireFromString("0.07")))
}
