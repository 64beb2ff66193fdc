package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Generate aggregates rated usage for [periodStart, periodEnd) into a
	// pending invoice. An empty period yields a zero-total invoice.
	Generate(ctx context.Context, accountID snowflake.ID, periodStart, periodEnd time.Time) (*Invoice, error)

	GetByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	ListByAccount(ctx context.Context, accountID snowflake.ID) ([]Invoice, error)

	// Pay settles a pending invoice: a ledger credit for the invoice total is
	// recorded and the invoice flips to paid.
	Pay(ctx context.Context, id snowflake.ID) (*Invoice, error)
	Cancel(ctx context.Context, id snowflake.ID) (*Invoice, error)

	// MarkOverdueSweep flips pending invoices whose due date has passed.
	MarkOverdueSweep(ctx context.Context) (int, error)
}

type Repository interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	ListByAccount(ctx context.Context, accountID snowflake.ID) ([]Invoice, error)
	Insert(ctx context.Context, invoice *Invoice) error
	// UpdateStatus transitions status only from the expected previous states;
	// reports false when the invoice was not in any of them.
	UpdateStatus(ctx context.Context, id snowflake.ID, from []InvoiceStatus, to InvoiceStatus, paidAt *time.Time) (bool, error)
	// ExistsForPeriod reports whether the account already has an invoice
	// starting at periodStart, so scheduled runs stay idempotent.
	ExistsForPeriod(ctx context.Context, accountID snowflake.ID, periodStart time.Time) (bool, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}
