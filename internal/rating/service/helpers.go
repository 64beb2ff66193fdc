package service

import (
	"github.com/shopspring/decimal"
)

var sixty = decimal.NewFromInt(60)

// billableSeconds rounds a call up to whole charging intervals. Any connected
// call bills at least one full interval (first-increment billing).
func billableSeconds(durationSeconds, chargingIntervalSeconds int) int {
	if durationSeconds <= 0 || chargingIntervalSeconds <= 0 {
		return 0
	}
	intervals := (durationSeconds + chargingIntervalSeconds - 1) / chargingIntervalSeconds
	return intervals * chargingIntervalSeconds
}

// callCost prices billable seconds at a per-minute rate, rounded to cents
// half-away-from-zero. Money is stored at two decimals regardless of the
// rate's own precision.
func callCost(sellPerMinute decimal.Decimal, seconds int) decimal.Decimal {
	return sellPerMinute.
		Mul(decimal.NewFromInt(int64(seconds))).
		Div(sixty).
		Round(2)
}

func smsCost(pricePerMessage decimal.Decimal, messages int) decimal.Decimal {
	return pricePerMessage.Mul(decimal.NewFromInt(int64(messages))).Round(2)
}
