package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Account, error)
	ListActive(ctx context.Context) ([]Account, error)
}
