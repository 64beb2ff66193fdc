package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/voxbilllabs/voxbill/internal/account/domain"
	"github.com/voxbilllabs/voxbill/internal/clock"
	"github.com/voxbilllabs/voxbill/internal/config"
	invoicedomain "github.com/voxbilllabs/voxbill/internal/invoice/domain"
	"github.com/voxbilllabs/voxbill/internal/invoice/repository"
	ledgerdomain "github.com/voxbilllabs/voxbill/internal/ledger/domain"
	ratingdomain "github.com/voxbilllabs/voxbill/internal/rating/domain"
	ratingrepository "github.com/voxbilllabs/voxbill/internal/rating/repository"
	"github.com/voxbilllabs/voxbill/internal/tax"
)

var sixty = decimal.NewFromInt(60)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	cfg   *config.Config
	genID *snowflake.Node
	clock clock.Clock

	repo     invoicedomain.Repository
	usage    ratingdomain.Repository
	accounts accountdomain.Repository
	ledger   ledgerdomain.Service
	tax      *tax.Resolver
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      *config.Config
	GenID    *snowflake.Node
	Clock    clock.Clock
	Accounts accountdomain.Repository
	Ledger   ledgerdomain.Service
	Tax      *tax.Resolver
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		cfg:      p.Cfg,
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     repository.NewRepository(p.DB),
		usage:    ratingrepository.NewRepository(p.DB),
		accounts: p.Accounts,
		ledger:   p.Ledger,
		tax:      p.Tax,
	}
}

// lineGroup accumulates one destination label's usage for the period.
type lineGroup struct {
	seconds int64
	total   decimal.Decimal
}

func (s *Service) Generate(ctx context.Context, accountID snowflake.ID, periodStart, periodEnd time.Time) (*invoicedomain.Invoice, error) {
	if !periodEnd.After(periodStart) {
		return nil, invoicedomain.ErrInvalidInvoicePeriod
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, accountdomain.ErrAccountNotFound
	}

	records, err := s.usage.ListRated(ctx, accountID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	// Group by destination label so several prefixes of one country fold
	// into a single line.
	groups := map[string]*lineGroup{}
	for _, record := range records {
		if !record.Cost.Valid {
			continue
		}
		group, ok := groups[record.RatedDestination]
		if !ok {
			group = &lineGroup{total: decimal.Zero}
			groups[record.RatedDestination] = group
		}
		group.seconds += int64(record.DurationSeconds)
		group.total = group.total.Add(record.Cost.Decimal)
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	now := s.clock.Now(ctx)
	dueDays := s.cfg.Billing.InvoiceDueDays
	if dueDays <= 0 {
		dueDays = 30
	}

	invoice := &invoicedomain.Invoice{
		ID:          s.genID.Generate(),
		AccountID:   accountID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Subtotal:    decimal.Zero,
		Status:      invoicedomain.InvoicePending,
		IssueDate:   now,
		DueDate:     now.AddDate(0, 0, dueDays),
	}

	for _, label := range labels {
		group := groups[label]
		minutes := decimal.NewFromInt(group.seconds).Div(sixty).Round(4)

		// Line totals sum the already-rounded per-usage costs; recomputing
		// from an average rate would reintroduce rounding drift.
		unitPrice := decimal.Zero
		if !minutes.IsZero() {
			unitPrice = group.total.Div(minutes).Round(6)
		}

		invoice.LineItems = append(invoice.LineItems, invoicedomain.LineItem{
			ID:              s.genID.Generate(),
			InvoiceID:       invoice.ID,
			Description:     label,
			QuantityMinutes: minutes,
			UnitPrice:       unitPrice,
			Total:           group.total,
		})
		invoice.Subtotal = invoice.Subtotal.Add(group.total)
	}

	taxRate := s.tax.RateFor(account.CountryCode, account.TaxID)
	invoice.TaxAmount = invoice.Subtotal.Mul(taxRate)
	invoice.Total = invoice.Subtotal.Add(invoice.TaxAmount)

	if err := s.repo.Insert(ctx, invoice); err != nil {
		return nil, err
	}

	s.log.Info("invoice generated",
		zap.String("account_id", accountID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("total", invoice.Total.String()),
		zap.Int("line_items", len(invoice.LineItems)))
	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *Service) ListByAccount(ctx context.Context, accountID snowflake.ID) ([]invoicedomain.Invoice, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

// Pay records a ledger credit for the invoice total and flips pending to
// paid. The credit and the status change share a transaction.
func (s *Service) Pay(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	for attempt := 0; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repoTx := repository.NewRepository(tx)
			ok, txErr := repoTx.UpdateStatus(ctx, id,
				[]invoicedomain.InvoiceStatus{invoicedomain.InvoicePending},
				invoicedomain.InvoicePaid, &now)
			if txErr != nil {
				return txErr
			}
			if !ok {
				return invoicedomain.ErrInvalidInvoiceTransition
			}

			if invoice.Total.IsZero() {
				return nil
			}
			_, txErr = s.ledger.Apply(ctx, tx, ledgerdomain.Entry{
				AccountID: invoice.AccountID,
				Amount:    invoice.Total,
				Type:      ledgerdomain.TransactionCredit,
				Note:      "invoice " + invoice.ID.String() + " payment",
			})
			return txErr
		})
		if err == nil {
			break
		}
		if !errors.Is(err, ledgerdomain.ErrConcurrentUpdateConflict) || attempt >= 4 {
			return nil, err
		}
	}

	return s.GetByID(ctx, id)
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	ok, err := s.repo.UpdateStatus(ctx, id,
		[]invoicedomain.InvoiceStatus{invoicedomain.InvoicePending, invoicedomain.InvoiceOverdue},
		invoicedomain.InvoiceCancelled, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invoicedomain.ErrInvalidInvoiceTransition
	}
	return s.GetByID(ctx, id)
}

func (s *Service) MarkOverdueSweep(ctx context.Context) (int, error) {
	flipped, err := s.repo.MarkOverdue(ctx, s.clock.Now(ctx))
	if err != nil {
		return 0, err
	}
	if flipped > 0 {
		s.log.Info("invoices marked overdue", zap.Int64("count", flipped))
	}
	return int(flipped), nil
}
