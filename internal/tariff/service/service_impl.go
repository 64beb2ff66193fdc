package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	tariffdomain "github.com/voxbilllabs/voxbill/internal/tariff/domain"
	"github.com/voxbilllabs/voxbill/internal/tariff/repository"
)

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  tariffdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p ServiceParam) tariffdomain.Service {
	return &Service{
		log:   p.Log.Named("tariff.service"),
		genID: p.GenID,
		repo:  repository.NewRepository(p.DB),
	}
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*tariffdomain.Plan, error) {
	plan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, tariffdomain.ErrPlanNotFound
	}
	return plan, nil
}

func (s *Service) List(ctx context.Context) ([]tariffdomain.Plan, error) {
	return s.repo.List(ctx)
}

// Save validates the plan so an invalid configuration never reaches rating.
// A zero Precision is a real setting (whole currency units); callers that
// want the default must set it explicitly.
func (s *Service) Save(ctx context.Context, plan *tariffdomain.Plan) error {
	if plan.ChargingIntervalSeconds == 0 {
		plan.ChargingIntervalSeconds = tariffdomain.DefaultChargingIntervalSeconds
	}
	if err := plan.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if plan.ID == 0 {
		plan.ID = s.genID.Generate()
		plan.CreatedAt = now
		plan.UpdatedAt = now
		return s.repo.Save(ctx, plan)
	}

	existing, err := s.repo.GetByID(ctx, plan.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return tariffdomain.ErrPlanNotFound
	}

	// Predefined status and creation time are not editable; an update must
	// never strip the deletion protection off a predefined plan.
	plan.Predefined = existing.Predefined
	plan.CreatedAt = existing.CreatedAt
	plan.UpdatedAt = now
	return s.repo.Save(ctx, plan)
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	plan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if plan == nil {
		return tariffdomain.ErrPlanNotFound
	}
	if plan.Predefined {
		return tariffdomain.ErrPlanPredefined
	}
	return s.repo.Delete(ctx, id)
}
