// Package pricing derives customer sell prices from wholesale rates.
package pricing

import (
	"github.com/shopspring/decimal"

	tariffdomain "github.com/voxbilllabs/voxbill/internal/tariff/domain"
)

var hundred = decimal.NewFromInt(100)

// SellPricePerMinute applies a plan's markup rule to a wholesale buy price.
// The margin is clamped to [MinProfit, MaxProfit] and the result rounded
// half-away-from-zero to the plan's precision.
func SellPricePerMinute(buy decimal.Decimal, plan tariffdomain.Plan) (decimal.Decimal, error) {
	if err := plan.Validate(); err != nil {
		return decimal.Zero, err
	}

	if plan.PricingType == tariffdomain.PricingFree {
		return decimal.Zero, nil
	}

	var raw decimal.Decimal
	switch plan.PricingType {
	case tariffdomain.PricingPercentage:
		raw = buy.Mul(decimal.NewFromInt(1).Add(plan.ProfitPercent.Div(hundred)))
	case tariffdomain.PricingFixed:
		raw = buy.Add(plan.FixedProfit)
	default:
		return decimal.Zero, tariffdomain.ErrInvalidTariffConfig
	}

	profit := clamp(raw.Sub(buy), plan.MinProfit, plan.MaxProfit)
	sell := buy.Add(profit)

	return sell.Round(int32(plan.Precision)), nil
}

// SMSPrice is the flat per-message sell price; free plans message for nothing.
func SMSPrice(plan tariffdomain.Plan) (decimal.Decimal, error) {
	if err := plan.Validate(); err != nil {
		return decimal.Zero, err
	}
	if plan.PricingType == tariffdomain.PricingFree {
		return decimal.Zero, nil
	}
	return plan.SMSPrice, nil
}

func clamp(v, min, max decimal.Decimal) decimal.Decimal {
	if v.LessThan(min) {
		return min
	}
	if v.GreaterThan(max) {
		return max
	}
	return v
}
