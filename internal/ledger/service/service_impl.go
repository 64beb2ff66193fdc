package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voxbilllabs/voxbill/internal/config"
	ledgerdomain "github.com/voxbilllabs/voxbill/internal/ledger/domain"
	"github.com/voxbilllabs/voxbill/internal/ledger/repository"
)

// maxApplyRetries bounds the optimistic-concurrency retry loop. Conflicts
// only occur when two writers race the same wallet, so a handful of attempts
// is plenty before surfacing the conflict as transient.
const maxApplyRetries = 5

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	cfg   *config.Config
	genID *snowflake.Node
	repo  ledgerdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   *config.Config
	GenID *snowflake.Node
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		cfg:   p.Cfg,
		genID: p.GenID,
		repo:  repository.NewRepository(p.DB),
	}
}

func (s *Service) Debit(ctx context.Context, entry ledgerdomain.Entry) (*ledgerdomain.Transaction, error) {
	entry.Type = ledgerdomain.TransactionDebit
	return s.applyWithRetry(ctx, entry)
}

func (s *Service) Credit(ctx context.Context, entry ledgerdomain.Entry) (*ledgerdomain.Transaction, error) {
	entry.Type = ledgerdomain.TransactionCredit
	return s.applyWithRetry(ctx, entry)
}

func (s *Service) applyWithRetry(ctx context.Context, entry ledgerdomain.Entry) (*ledgerdomain.Transaction, error) {
	var txn *ledgerdomain.Transaction

	for attempt := 0; attempt < maxApplyRetries; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			applied, applyErr := s.Apply(ctx, tx, entry)
			if applyErr != nil {
				return applyErr
			}
			txn = applied
			return nil
		})
		if err == nil {
			return txn, nil
		}
		if err != ledgerdomain.ErrConcurrentUpdateConflict {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 5 * time.Millisecond):
		}
	}

	s.log.Warn("ledger apply exhausted retries",
		zap.String("account_id", entry.AccountID.String()),
		zap.String("type", string(entry.Type)))
	return nil, ledgerdomain.ErrConcurrentUpdateConflict
}

// Apply performs one version-checked balance mutation plus its ledger entry
// inside the caller's transaction. Both writes commit or neither does.
func (s *Service) Apply(ctx context.Context, tx *gorm.DB, entry ledgerdomain.Entry) (*ledgerdomain.Transaction, error) {
	if entry.Amount.IsNegative() {
		return nil, ledgerdomain.ErrInvalidAmount
	}

	repoTx := repository.NewRepository(tx)

	wallet, err := repoTx.GetWallet(ctx, entry.AccountID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ledgerdomain.ErrWalletNotFound
	}

	signed := entry.Amount
	if entry.Type == ledgerdomain.TransactionDebit {
		signed = signed.Neg()
	}
	newBalance := wallet.Balance.Add(signed)

	expectedVersion := wallet.Version
	wallet.Balance = newBalance
	if newBalance.IsNegative() && s.cfg.Billing.SuspendOnNegative {
		// The first flag timestamp survives follow-up entries; the flag only
		// clears once the balance recovers.
		if wallet.LowBalanceFlaggedAt == nil {
			now := time.Now().UTC()
			wallet.LowBalanceFlaggedAt = &now
		}
		if entry.Type == ledgerdomain.TransactionDebit {
			s.log.Warn("wallet balance negative after debit",
				zap.String("account_id", entry.AccountID.String()),
				zap.String("balance", newBalance.String()))
		}
	} else {
		wallet.LowBalanceFlaggedAt = nil
	}

	ok, err := repoTx.UpdateBalanceVersioned(ctx, wallet, expectedVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ledgerdomain.ErrConcurrentUpdateConflict
	}

	txn := &ledgerdomain.Transaction{
		ID:            s.genID.Generate(),
		AccountID:     entry.AccountID,
		Amount:        signed,
		Type:          entry.Type,
		UsageRecordID: entry.UsageRecordID,
		Note:          entry.Note,
		CreatedAt:     time.Now().UTC(),
	}
	if err := repoTx.InsertTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *Service) History(ctx context.Context, accountID snowflake.ID) ([]ledgerdomain.Transaction, error) {
	return s.repo.ListTransactions(ctx, accountID)
}

func (s *Service) GetWallet(ctx context.Context, accountID snowflake.ID) (*ledgerdomain.Wallet, error) {
	wallet, err := s.repo.GetWallet(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, ledgerdomain.ErrWalletNotFound
	}
	return wallet, nil
}

func (s *Service) EnsureWallet(ctx context.Context, accountID snowflake.ID, currency string, initial decimal.Decimal) (*ledgerdomain.Wallet, error) {
	wallet, err := s.repo.GetWallet(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if wallet != nil {
		return wallet, nil
	}

	now := time.Now().UTC()
	wallet = &ledgerdomain.Wallet{
		AccountID:      accountID,
		Balance:        initial,
		InitialBalance: initial,
		Currency:       currency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateWallet(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}
