package completions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quickshift/internal/domain/gigs"
)

func TestWorkerAmount(t *testing.T) {
	entries := []TimeEntry{
		{Date: "2026-05-01", Hours: 4.5},
		{Date: "2026-05-01", Hours: 2},
		{Date: "2026-05-02", Hours: 3.25},
		{Date: "2026-05-03", Hours: 0},
	}
	tests := []struct {
		name     string
		rate     gigs.PayRate
		input    WorkerInput
		want     float64
		days     int
		warnings []string
	}{
		{name: "hourly", rate: gigs.PayRate{Amount: 18.5, RateType: gigs.RateHourly}, input: WorkerInput{TimeEntries: entries}, want: 180.38, days: 2},
		{name: "fixed ignores hours", rate: gigs.PayRate{Amount: 250, RateType: gigs.RateFixed}, input: WorkerInput{TimeEntries: entries}, want: 250, days: 2},
		{name: "daily_fixed is flat", rate: gigs.PayRate{Amount: 120, RateType: gigs.RateDailyFixed}, input: WorkerInput{TimeEntries: entries}, want: 120, days: 2},
		{name: "daily counts distinct worked dates", rate: gigs.PayRate{Amount: 100, RateType: gigs.RateDaily}, input: WorkerInput{TimeEntries: entries}, want: 200, days: 2},
		{
			name:  "adjustments",
			rate:  gigs.PayRate{Amount: 20, RateType: gigs.RateHourly},
			input: WorkerInput{TimeEntries: []TimeEntry{{Date: "2026-05-01", Hours: 8}}, Overtime: 30, Bonus: 10.005, Deductions: 5},
			want:  195.01, days: 1,
		},
		{
			name:     "negative clamps to zero",
			rate:     gigs.PayRate{Amount: 10, RateType: gigs.RateHourly},
			input:    WorkerInput{TimeEntries: []TimeEntry{{Date: "2026-05-01", Hours: 1}}, Deductions: 50},
			want:     0,
			days:     1,
			warnings: []string{WarningNegativeAmount},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := WorkerAmount(tc.rate, tc.input)
			assert.Equal(t, tc.want, got.Amount)
			assert.Equal(t, tc.days, got.Days)
			assert.Equal(t, tc.warnings, got.Warnings)
		})
	}
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		pricing Pricing
		want    Totals
	}{
		{
			name:    "defaults",
			amounts: []float64{100, 50},
			pricing: Pricing{ServiceFeeRate: 0.10, TaxRate: 0.05},
			want:    Totals{TotalAmount: 150, ServiceFee: 15, Tax: 8.25, TotalCharge: 173.25},
		},
		{
			name:    "rounds each step",
			amounts: []float64{33.33, 0.01},
			pricing: Pricing{ServiceFeeRate: 0.10, TaxRate: 0.05},
			// fee 3.334 -> 3.33, tax (33.34+3.33)*0.05 = 1.8335 -> 1.83
			want: Totals{TotalAmount: 33.34, ServiceFee: 3.33, Tax: 1.83, TotalCharge: 38.5},
		},
		{
			name:    "half rounds away from zero",
			amounts: []float64{0.25},
			pricing: Pricing{ServiceFeeRate: 0.10, TaxRate: 0},
			want:    Totals{TotalAmount: 0.25, ServiceFee: 0.03, Tax: 0, TotalCharge: 0.28},
		},
		{
			name:    "empty",
			pricing: Pricing{ServiceFeeRate: 0.10, TaxRate: 0.05},
			want:    Totals{},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeTotals(tc.amounts, tc.pricing))
		})
	}
}

func TestValidEntry(t *testing.T) {
	assert.True(t, validEntry(TimeEntry{Date: "2026-05-01", Hours: 8}))
	assert.False(t, validEntry(TimeEntry{Date: "May 1", Hours: 8}))
	assert.False(t, validEntry(TimeEntry{Date: "2026-05-01", Hours: 25}))
	assert.False(t, validEntry(TimeEntry{Date: "2026-05-01", Hours: -1}))
}
