package completions

import (
	"time"

	"github.com/shopspring/decimal"

	"quickshift/internal/domain/gigs"
)

const WarningNegativeAmount = "negative_amount"

// Pricing holds the platform rates applied on top of worker pay.
type Pricing struct {
	ServiceFeeRate float64
	TaxRate        float64
}

type WorkerCalc struct {
	Hours    float64
	Days     int
	Base     float64
	Amount   float64
	Warnings []string
}

type Totals struct {
	TotalAmount float64
	ServiceFee  float64
	Tax         float64
	TotalCharge float64
}

// cents rounds half away from zero.
func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// WorkerAmount computes base pay from the gig rate plus the flat adjustments.
func WorkerAmount(rate gigs.PayRate, in WorkerInput) WorkerCalc {
	hours := decimal.Zero
	days := map[string]bool{}
	for _, entry := range in.TimeEntries {
		if entry.Hours <= 0 {
			continue
		}
		hours = hours.Add(decimal.NewFromFloat(entry.Hours))
		days[entry.Date] = true
	}

	rateAmount := decimal.NewFromFloat(rate.Amount)
	var base decimal.Decimal
	switch rate.RateType {
	case gigs.RateHourly:
		base = rateAmount.Mul(hours)
	case gigs.RateDaily:
		base = rateAmount.Mul(decimal.NewFromInt(int64(len(days))))
	default:
		base = rateAmount
	}
	base = cents(base)

	amount := base.
		Add(decimal.NewFromFloat(in.Overtime)).
		Add(decimal.NewFromFloat(in.Bonus)).
		Sub(decimal.NewFromFloat(in.Deductions))
	amount = cents(amount)

	out := WorkerCalc{
		Hours: hours.InexactFloat64(),
		Days:  len(days),
		Base:  base.InexactFloat64(),
	}
	if amount.IsNegative() {
		amount = decimal.Zero
		out.Warnings = append(out.Warnings, WarningNegativeAmount)
	}
	out.Amount = amount.InexactFloat64()
	return out
}

func ComputeTotals(amounts []float64, pricing Pricing) Totals {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	total = cents(total)
	fee := cents(total.Mul(decimal.NewFromFloat(pricing.ServiceFeeRate)))
	tax := cents(total.Add(fee).Mul(decimal.NewFromFloat(pricing.TaxRate)))
	charge := total.Add(fee).Add(tax)
	return Totals{
		TotalAmount: total.InexactFloat64(),
		ServiceFee:  fee.InexactFloat64(),
		Tax:         tax.InexactFloat64(),
		TotalCharge: charge.InexactFloat64(),
	}
}

func validEntry(e TimeEntry) bool {
	if _, err := time.Parse("2006-01-02", e.Date); err != nil {
		return false
	}
	return e.Hours >= 0 && e.Hours <= 24
}
