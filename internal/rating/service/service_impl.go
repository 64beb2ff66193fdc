package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/voxbilllabs/voxbill/internal/account/domain"
	ledgerdomain "github.com/voxbilllabs/voxbill/internal/ledger/domain"
	ratecarddomain "github.com/voxbilllabs/voxbill/internal/ratecard/domain"
	ratingdomain "github.com/voxbilllabs/voxbill/internal/rating/domain"
	"github.com/voxbilllabs/voxbill/internal/rating/repository"
	tariffdomain "github.com/voxbilllabs/voxbill/internal/tariff/domain"
	"github.com/voxbilllabs/voxbill/internal/tariff/pricing"
)

const maxBillRetries = 5

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	repo     ratingdomain.Repository
	accounts accountdomain.Repository
	rates    ratecarddomain.Service
	tariffs  tariffdomain.Service
	ledger   ledgerdomain.Service
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Accounts accountdomain.Repository
	Rates    ratecarddomain.Service
	Tariffs  tariffdomain.Service
	Ledger   ledgerdomain.Service
}

func NewService(p ServiceParam) ratingdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("rating.service"),
		genID:    p.GenID,
		repo:     repository.NewRepository(p.DB),
		accounts: p.Accounts,
		rates:    p.Rates,
		tariffs:  p.Tariffs,
		ledger:   p.Ledger,
	}
}

func (s *Service) Ingest(ctx context.Context, record *ratingdomain.UsageRecord) error {
	switch record.Kind {
	case ratingdomain.UsageCall:
		if record.DurationSeconds < 0 {
			return ratingdomain.ErrInvalidUsageRecord
		}
	case ratingdomain.UsageSMS:
		if record.MessageCount <= 0 {
			record.MessageCount = 1
		}
	default:
		return ratingdomain.ErrInvalidUsageRecord
	}
	if record.AccountID == 0 || record.DestinationNumber == "" {
		return ratingdomain.ErrInvalidUsageRecord
	}

	now := time.Now().UTC()
	if record.ID == 0 {
		record.ID = s.genID.Generate()
	}
	if record.StartTime.IsZero() {
		record.StartTime = now
	}
	record.Status = ratingdomain.UsagePending
	record.CreatedAt = now
	return s.repo.Insert(ctx, record)
}

// RateAndBill prices one pending usage record and debits the wallet. The cost
// write and the debit share a transaction, so aggregation (which only reads
// rated records) never observes a record whose cost is still in flight.
func (s *Service) RateAndBill(ctx context.Context, usageRecordID snowflake.ID) (*ratingdomain.RateResult, error) {
	record, err := s.repo.GetByID(ctx, usageRecordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ratingdomain.ErrUsageRecordNotFound
	}
	if record.Status == ratingdomain.UsageRated {
		// Cost is write-once; a repeat call reports the stored outcome.
		return &ratingdomain.RateResult{Cost: record.Cost.Decimal, Status: record.Status}, nil
	}

	account, err := s.accounts.GetByID(ctx, record.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, accountdomain.ErrAccountNotFound
	}

	plan, err := s.tariffs.GetByID(ctx, account.TariffPlanID)
	if err != nil {
		return nil, err
	}

	rate, err := s.rates.Resolve(ctx, record.DestinationNumber)
	if errors.Is(err, ratecarddomain.ErrNoRateFound) {
		if markErr := s.repo.MarkUnrated(ctx, record.ID); markErr != nil {
			return nil, markErr
		}
		s.log.Warn("no rate matched destination, usage left unrated",
			zap.String("account_id", record.AccountID.String()),
			zap.String("usage_record_id", record.ID.String()),
			zap.String("destination", record.DestinationNumber))
		return &ratingdomain.RateResult{Status: ratingdomain.UsageUnrated}, ratecarddomain.ErrNoRateFound
	}
	if err != nil {
		return nil, err
	}

	cost, err := s.price(record, rate, *plan)
	if err != nil {
		return nil, err
	}

	record.Cost = decimal.NullDecimal{Decimal: cost, Valid: true}
	record.RatedDestination = rate.DestinationName

	if err := s.billWithRetry(ctx, record, cost); err != nil {
		return nil, fmt.Errorf("billing usage %s for account %s: %w",
			record.ID, record.AccountID, err)
	}

	return &ratingdomain.RateResult{Cost: cost, Status: ratingdomain.UsageRated}, nil
}

func (s *Service) price(record *ratingdomain.UsageRecord, rate *ratecarddomain.BaseRate, plan tariffdomain.Plan) (decimal.Decimal, error) {
	switch record.Kind {
	case ratingdomain.UsageSMS:
		price, err := pricing.SMSPrice(plan)
		if err != nil {
			return decimal.Zero, err
		}
		return smsCost(price, record.MessageCount), nil
	default:
		sell, err := pricing.SellPricePerMinute(rate.BuyPricePerMinute, plan)
		if err != nil {
			return decimal.Zero, err
		}
		return callCost(sell, billableSeconds(record.DurationSeconds, plan.ChargingIntervalSeconds)), nil
	}
}

func (s *Service) billWithRetry(ctx context.Context, record *ratingdomain.UsageRecord, cost decimal.Decimal) error {
	for attempt := 0; attempt < maxBillRetries; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repoTx := repository.NewRepository(tx)
			if err := repoTx.MarkRated(ctx, record); err != nil {
				return err
			}

			// Zero-cost usage (missed calls, free plans) is rated but never
			// reaches the ledger.
			if cost.IsZero() {
				return nil
			}

			usageID := record.ID
			_, err := s.ledger.Apply(ctx, tx, ledgerdomain.Entry{
				AccountID:     record.AccountID,
				Amount:        cost,
				Type:          ledgerdomain.TransactionDebit,
				UsageRecordID: &usageID,
				Note:          "usage charge " + record.RatedDestination,
			})
			return err
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, ledgerdomain.ErrConcurrentUpdateConflict) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 5 * time.Millisecond):
		}
	}
	return ledgerdomain.ErrConcurrentUpdateConflict
}
