package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sfdfinance/finance-core/internal/core/domain"
)

// annualRateBps is the flat subsidized lending rate applied to every
// schedule, in basis points.
const annualRateBps = 800

// buildSchedule produces an annuity repayment schedule in minor units.
// Each installment's interest accrues on the outstanding principal at the
// monthly rate; rounding drift is absorbed by the final installment so the
// principal column always sums exactly to amount.
func buildSchedule(amount int64, durationMonths int, from time.Time) []domain.Installment {
	if amount <= 0 || durationMonths <= 0 {
		return nil
	}

	monthlyRate := decimal.NewFromInt(annualRateBps).
		Div(decimal.NewFromInt(10000)).
		Div(decimal.NewFromInt(12))
	principal := decimal.NewFromInt(amount)
	months := decimal.NewFromInt(int64(durationMonths))

	// Annuity payment: P * r / (1 - (1+r)^-n); falls back to straight-line
	// when the rate is zero.
	var payment decimal.Decimal
	if monthlyRate.IsZero() {
		payment = principal.Div(months)
	} else {
		onePlus := decimal.NewFromInt(1).Add(monthlyRate)
		denom := decimal.NewFromInt(1).Sub(decimal.NewFromInt(1).Div(onePlus.Pow(months)))
		payment = principal.Mul(monthlyRate).Div(denom)
	}

	schedule := make([]domain.Installment, 0, durationMonths)
	outstanding := principal
	var principalPaid int64

	for i := 1; i <= durationMonths; i++ {
		interest := outstanding.Mul(monthlyRate).Round(0).IntPart()
		principalPart := payment.Round(0).IntPart() - interest
		if i == durationMonths {
			principalPart = amount - principalPaid
		}
		if principalPart < 0 {
			principalPart = 0
		}

		schedule = append(schedule, domain.Installment{
			Number:    i,
			DueDate:   from.AddDate(0, i, 0),
			Principal: principalPart,
			Interest:  interest,
		})

		principalPaid += principalPart
		outstanding = outstanding.Sub(decimal.NewFromInt(principalPart))
	}

	return schedule
}
