// Package domain contains tariff plan models and pricing rules.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type PricingType string

const (
	PricingPercentage PricingType = "percentage"
	PricingFixed      PricingType = "fixed"
	PricingFree       PricingType = "free"
)

const (
	DefaultPrecision               = 5
	DefaultChargingIntervalSeconds = 60
)

// Plan is a named pricing rule set applied on top of wholesale rates.
type Plan struct {
	ID                      snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name                    string          `gorm:"type:text;not null" json:"name"`
	PricingType             PricingType     `gorm:"type:text;not null" json:"pricing_type"`
	ProfitPercent           decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"profit_percent"`
	FixedProfit             decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"fixed_profit"`
	MinProfit               decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"min_profit"`
	MaxProfit               decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"max_profit"`
	Precision               int             `gorm:"not null" json:"precision"`
	ChargingIntervalSeconds int             `gorm:"not null" json:"charging_interval_seconds"`
	SMSPrice                decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"sms_price"`
	Predefined              bool            `gorm:"not null;default:false" json:"predefined"`
	Active                  bool            `gorm:"not null" json:"active"`
	CreatedAt               time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt               time.Time       `gorm:"not null" json:"updated_at"`
}

func (Plan) TableName() string { return "tariff_plans" }

// Validate rejects configurations that must never reach rating.
func (p Plan) Validate() error {
	switch p.PricingType {
	case PricingPercentage, PricingFixed, PricingFree:
	default:
		return ErrInvalidTariffConfig
	}
	if p.MinProfit.GreaterThan(p.MaxProfit) {
		return ErrInvalidTariffConfig
	}
	if p.Precision < 0 {
		return ErrInvalidTariffConfig
	}
	if p.ChargingIntervalSeconds <= 0 {
		return ErrInvalidTariffConfig
	}
	if p.SMSPrice.IsNegative() {
		return ErrInvalidTariffConfig
	}
	return nil
}

var (
	ErrInvalidTariffConfig = errors.New("invalid_tariff_config")
	ErrPlanNotFound        = errors.New("tariff_plan_not_found")
	ErrPlanPredefined      = errors.New("tariff_plan_predefined")
)
