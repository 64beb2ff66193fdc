package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBillableSecondsRoundsUpToInterval(t *testing.T) {
	cases := []struct {
		duration int
		interval int
		want     int
	}{
		{61, 60, 120},
		{60, 60, 60},
		{1, 60, 60},
		{185, 60, 240},
		{0, 60, 0},
		{59, 30, 60},
		{7, 1, 7},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, billableSeconds(tc.duration, tc.interval),
			"duration=%d interval=%d", tc.duration, tc.interval)
	}
}

func TestCallCostWorkedExample(t *testing.T) {
	// 0.0144/min for 240 billable seconds = 0.0576 -> $0.06
	sell := decimal.RequireFromString("0.0144")
	cost := callCost(sell, 240)
	assert.True(t, cost.Equal(decimal.RequireFromString("0.06")), "got %s", cost)
}

func TestCallCostRoundsToCents(t *testing.T) {
	sell := decimal.RequireFromString("0.011")
	cost := callCost(sell, 60) // 0.011 -> 0.01
	assert.True(t, cost.Equal(decimal.RequireFromString("0.01")), "got %s", cost)
}

func TestSMSCost(t *testing.T) {
	price := decimal.RequireFromString("0.045")
	cost := smsCost(price, 3) // 0.135 -> 0.14
	assert.True(t, cost.Equal(decimal.RequireFromString("0.14")), "got %s", cost)
}
