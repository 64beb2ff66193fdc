// Package scheduler runs the periodic billing jobs that have no HTTP trigger.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/voxbilllabs/voxbill/internal/account/domain"
	"github.com/voxbilllabs/voxbill/internal/clock"
	"github.com/voxbilllabs/voxbill/internal/config"
	invoicedomain "github.com/voxbilllabs/voxbill/internal/invoice/domain"
)

type Scheduler struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *gorm.DB
	clock      clock.Clock
	invoiceSvc invoicedomain.Service
	accounts   accountdomain.Repository
}

type SchedulerParam struct {
	fx.In

	Cfg        *config.Config
	Log        *zap.Logger
	DB         *gorm.DB
	Clock      clock.Clock
	InvoiceSvc invoicedomain.Service
	Accounts   accountdomain.Repository
}

func NewScheduler(p SchedulerParam) *Scheduler {
	return &Scheduler{
		cfg:        p.Cfg,
		log:        p.Log.Named("scheduler"),
		db:         p.DB,
		clock:      p.Clock,
		invoiceSvc: p.InvoiceSvc,
		accounts:   p.Accounts,
	}
}

// RunForever loops the periodic jobs until ctx is cancelled. Each tick runs
// every job; a failing job is logged and retried on the next tick.
func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.cfg.Scheduler.OverdueSweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	s.log.Info("scheduler started", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce runs every job a single time, for the billing-run command.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if err := s.OverdueSweepJob(ctx); err != nil {
		s.log.Error("overdue sweep failed", zap.Error(err))
	}
	if err := s.MonthlyInvoiceJob(ctx); err != nil {
		s.log.Error("monthly invoicing failed", zap.Error(err))
	}
	if err := s.UsageRetentionJob(ctx); err != nil {
		s.log.Error("usage purge failed", zap.Error(err))
	}
}

func (s *Scheduler) OverdueSweepJob(ctx context.Context) error {
	started := s.clock.Now(ctx)
	flipped, err := s.invoiceSvc.MarkOverdueSweep(ctx)
	if err != nil {
		return err
	}
	s.log.Info("overdue sweep completed",
		zap.Int("flipped", flipped),
		zap.Duration("took", s.clock.Now(ctx).Sub(started)),
	)
	return nil
}

func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var runCtx context.Context
			runCtx, cancel = context.WithCancel(context.Background())
			go s.RunForever(runCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

var Module = fx.Module("scheduler",
	fx.Provide(NewScheduler),
)
