package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
	Save(ctx context.Context, plan *Plan) error
	Delete(ctx context.Context, id snowflake.ID) error
}

type Service interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
	Save(ctx context.Context, plan *Plan) error
	Delete(ctx context.Context, id snowflake.ID) error
}
