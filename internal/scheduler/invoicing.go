package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	invoicerepository "github.com/voxbilllabs/voxbill/internal/invoice/repository"
)

// MonthlyInvoiceJob invoices the previous calendar month for every active
// account. Accounts already invoiced for the period are skipped, which makes
// the job safe to run on every tick.
func (s *Scheduler) MonthlyInvoiceJob(ctx context.Context) error {
	if !s.cfg.Scheduler.MonthlyInvoicing {
		return nil
	}

	now := s.clock.Now(ctx).UTC()
	periodEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodStart := periodEnd.AddDate(0, -1, 0)

	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		return err
	}

	invoiceRepo := invoicerepository.NewRepository(s.db)
	generated := 0
	for _, account := range accounts {
		exists, err := invoiceRepo.ExistsForPeriod(ctx, account.ID, periodStart)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		inv, err := s.invoiceSvc.Generate(ctx, account.ID, periodStart, periodEnd)
		if err != nil {
			s.log.Error("monthly invoicing failed for account",
				zap.String("account_id", account.ID.String()),
				zap.Error(err),
			)
			continue
		}
		generated++
		s.log.Info("monthly invoice generated",
			zap.String("account_id", account.ID.String()),
			zap.String("invoice_id", inv.ID.String()),
			zap.String("total", inv.Total.String()),
		)
	}

	if generated > 0 {
		s.log.Info("monthly invoicing completed",
			zap.Time("period_start", periodStart),
			zap.Int("generated", generated),
		)
	}
	return nil
}
