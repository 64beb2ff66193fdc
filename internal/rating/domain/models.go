// Package domain contains usage records and rating outputs.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type UsageKind string

const (
	UsageCall UsageKind = "call"
	UsageSMS  UsageKind = "sms"
)

type UsageStatus string

const (
	// UsagePending awaits rating.
	UsagePending UsageStatus = "pending"
	// UsageRated carries a final, immutable cost.
	UsageRated UsageStatus = "rated"
	// UsageUnrated means no rate matched the destination; the operator has to
	// fix the rate deck and re-rate by hand.
	UsageUnrated UsageStatus = "unrated"
)

// UsageRecord is one completed call or SMS delivered by the ingestion layer.
// Cost and RatedDestination are written exactly once, by rating.
type UsageRecord struct {
	ID                snowflake.ID        `gorm:"primaryKey" json:"id"`
	AccountID         snowflake.ID        `gorm:"not null;index" json:"account_id"`
	Kind              UsageKind           `gorm:"type:text;not null" json:"kind"`
	DestinationNumber string              `gorm:"type:text;not null" json:"destination_number"`
	DurationSeconds   int                 `gorm:"not null;default:0" json:"duration_seconds"`
	MessageCount      int                 `gorm:"not null;default:0" json:"message_count"`
	StartTime         time.Time           `gorm:"not null;index" json:"start_time"`
	Cost              decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"cost"`
	RatedDestination  string              `gorm:"type:text" json:"rated_destination"`
	Status            UsageStatus         `gorm:"type:text;not null;index" json:"status"`
	CreatedAt         time.Time           `gorm:"not null" json:"created_at"`
}

func (UsageRecord) TableName() string { return "usage_records" }

// RateResult is what RateAndBill reports back to the ingestion layer.
type RateResult struct {
	Cost   decimal.Decimal `json:"cost"`
	Status UsageStatus     `json:"status"`
}

var (
	ErrUsageRecordNotFound = errors.New("usage_record_not_found")
	ErrUsageAlreadyRated   = errors.New("usage_already_rated")
	ErrInvalidUsageRecord  = errors.New("invalid_usage_record")
)
