// Package seed installs the predefined tariff plans and a starter rate deck
// so a fresh deployment can rate traffic immediately.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ratecarddomain "github.com/voxbilllabs/voxbill/internal/ratecard/domain"
	tariffdomain "github.com/voxbilllabs/voxbill/internal/tariff/domain"
)

type starterRate struct {
	code  string
	name  string
	price string
}

// Codes cover the destinations most decks start from; operators extend the
// deck through the rates API.
var starterRates = []starterRate{
	{"1", "United States", "0.0100"},
	{"44", "United Kingdom", "0.0150"},
	{"46", "Sweden", "0.0120"},
	{"467", "Sweden Mobile", "0.0350"},
	{"49", "Germany", "0.0130"},
	{"33", "France", "0.0140"},
	{"81", "Japan", "0.0200"},
}

// EnsureStarterData seeds predefined plans and the starter deck. Existing
// rows are left untouched so reruns are safe.
func EnsureStarterData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePredefinedPlans(ctx, tx, node); err != nil {
			return err
		}
		return ensureStarterRates(ctx, tx, node)
	})
}

func ensurePredefinedPlans(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	now := time.Now().UTC()
	plans := []tariffdomain.Plan{
		{
			Name:                    "Standard 20%",
			PricingType:             tariffdomain.PricingPercentage,
			ProfitPercent:           decimal.NewFromInt(20),
			MinProfit:               decimal.Zero,
			MaxProfit:               decimal.NewFromInt(1),
			Precision:               tariffdomain.DefaultPrecision,
			ChargingIntervalSeconds: tariffdomain.DefaultChargingIntervalSeconds,
			SMSPrice:                decimal.RequireFromString("0.05"),
			Predefined:              true,
			Active:                  true,
		},
		{
			Name:                    "Flat Margin",
			PricingType:             tariffdomain.PricingFixed,
			FixedProfit:             decimal.RequireFromString("0.01"),
			MinProfit:               decimal.Zero,
			MaxProfit:               decimal.NewFromInt(1),
			Precision:               tariffdomain.DefaultPrecision,
			ChargingIntervalSeconds: tariffdomain.DefaultChargingIntervalSeconds,
			SMSPrice:                decimal.RequireFromString("0.05"),
			Predefined:              true,
			Active:                  true,
		},
		{
			Name:                    "Internal Free",
			PricingType:             tariffdomain.PricingFree,
			MinProfit:               decimal.Zero,
			MaxProfit:               decimal.Zero,
			Precision:               tariffdomain.DefaultPrecision,
			ChargingIntervalSeconds: tariffdomain.DefaultChargingIntervalSeconds,
			Predefined:              true,
			Active:                  true,
		},
	}

	for _, plan := range plans {
		var count int64
		if err := tx.WithContext(ctx).
			Model(&tariffdomain.Plan{}).
			Where("name = ? AND predefined = ?", plan.Name, true).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		plan.ID = node.Generate()
		plan.CreatedAt = now
		plan.UpdatedAt = now
		if err := tx.WithContext(ctx).Create(&plan).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureStarterRates(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	now := time.Now().UTC()
	for _, sr := range starterRates {
		rate := ratecarddomain.BaseRate{
			ID:                node.Generate(),
			DestinationCode:   sr.code,
			DestinationName:   sr.name,
			BuyPricePerMinute: decimal.RequireFromString(sr.price),
			Active:            true,
			UpdatedAt:         now,
		}
		if err := tx.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "destination_code"}},
				DoNothing: true,
			}).
			Create(&rate).Error; err != nil {
			return err
		}
	}
	return nil
}
