package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	GetByID(ctx context.Context, id snowflake.ID) (*UsageRecord, error)
	Insert(ctx context.Context, record *UsageRecord) error
	// MarkRated stamps cost, destination label and the rated status in one
	// write. Only pending or unrated records may transition; rated is final.
	MarkRated(ctx context.Context, record *UsageRecord) error
	MarkUnrated(ctx context.Context, id snowflake.ID) error
	// ListRated returns rated records with start_time in [start, end).
	ListRated(ctx context.Context, accountID snowflake.ID, start, end time.Time) ([]UsageRecord, error)
}

type Service interface {
	// Ingest persists a pending usage record for later rating.
	Ingest(ctx context.Context, record *UsageRecord) error
	// RateAndBill prices a pending record and debits the account wallet.
	RateAndBill(ctx context.Context, usageRecordID snowflake.ID) (*RateResult, error)
}
