package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	ratecarddomain "github.com/voxbilllabs/voxbill/internal/ratecard/domain"
	"github.com/voxbilllabs/voxbill/internal/ratecard/repository"
)

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  ratecarddomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) ratecarddomain.Service {
	return &Service{
		log:   p.Log.Named("ratecard.service"),
		genID: p.GenID,
		repo:  repository.NewRepository(p.DB),
	}
}

func (s *Service) Resolve(ctx context.Context, destinationNumber string) (*ratecarddomain.BaseRate, error) {
	number := normalizeNumber(destinationNumber)
	if number == "" {
		return nil, ratecarddomain.ErrNoRateFound
	}

	rate, err := s.repo.FindBestMatch(ctx, number)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, ratecarddomain.ErrNoRateFound
	}
	return rate, nil
}

func (s *Service) List(ctx context.Context) ([]ratecarddomain.BaseRate, error) {
	return s.repo.List(ctx)
}

func (s *Service) Save(ctx context.Context, rate *ratecarddomain.BaseRate) error {
	rate.DestinationCode = strings.TrimSpace(rate.DestinationCode)
	if err := rate.Validate(); err != nil {
		return err
	}
	if rate.ID == 0 {
		rate.ID = s.genID.Generate()
	}
	rate.UpdatedAt = time.Now().UTC()
	return s.repo.Upsert(ctx, rate)
}

// normalizeNumber strips the dial-out decorations that appear on raw CDR
// destinations so prefix matching sees digits only.
func normalizeNumber(number string) string {
	number = strings.TrimSpace(number)
	number = strings.TrimPrefix(number, "+")
	number = strings.TrimPrefix(number, "00")

	var b strings.Builder
	for _, c := range number {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
