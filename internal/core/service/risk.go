package service

import "github.com/shopspring/decimal"

// computeRiskScore grades a request on a 0..100 scale from its repayment
// burden: the monthly installment as a share of the declared monthly income,
// with a small penalty for long durations. All arithmetic is decimal to keep
// the ratio exact before the final rounding.
func computeRiskScore(amount int64, durationMonths int, monthlyIncome int64) decimal.Decimal {
	if durationMonths <= 0 || monthlyIncome <= 0 {
		return decimal.Zero
	}

	installment := decimal.NewFromInt(amount).Div(decimal.NewFromInt(int64(durationMonths)))
	burden := installment.Div(decimal.NewFromInt(monthlyIncome))
	if burden.GreaterThan(decimal.NewFromInt(1)) {
		burden = decimal.NewFromInt(1)
	}

	score := decimal.NewFromInt(100).Sub(burden.Mul(decimal.NewFromInt(90)))

	// Long commitments carry residual risk even at a comfortable burden:
	// half a point per month beyond two years, capped at 10.
	if durationMonths > 24 {
		penalty := decimal.NewFromInt(int64(durationMonths - 24)).Div(decimal.NewFromInt(2))
		if penalty.GreaterThan(decimal.NewFromInt(10)) {
			penalty = decimal.NewFromInt(10)
		}
		score = score.Sub(penalty)
	}

	if score.IsNegative() {
		return decimal.Zero
	}
	return score.Round(2)
}
