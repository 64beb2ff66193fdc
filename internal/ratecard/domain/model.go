// Package domain contains the wholesale rate deck models.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// BaseRate is the wholesale per-minute cost paid upstream for one dialing
// prefix. Updates overwrite in place; usage that was already billed keeps the
// cost stored on the record.
type BaseRate struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	DestinationCode   string          `gorm:"type:text;not null;uniqueIndex" json:"destination_code"`
	DestinationName   string          `gorm:"type:text;not null" json:"destination_name"`
	BuyPricePerMinute decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"buy_price_per_minute"`
	Active            bool            `gorm:"not null" json:"active"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

func (BaseRate) TableName() string { return "base_rates" }

func (r BaseRate) Validate() error {
	code := strings.TrimSpace(r.DestinationCode)
	if code == "" {
		return ErrInvalidRate
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return ErrInvalidRate
		}
	}
	if r.BuyPricePerMinute.IsNegative() {
		return ErrInvalidRate
	}
	return nil
}

var (
	ErrNoRateFound = errors.New("no_rate_found")
	ErrInvalidRate = errors.New("invalid_rate")
)
