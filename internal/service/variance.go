package service

import (
	"fabrisys/internal/model"

	"github.com/shopspring/decimal"
)

// Column scales: money is decimal(12,2), quantities decimal(12,3).
const (
	moneyScale    int32 = 2
	quantityScale int32 = 3
)

// exceedsScale reports whether d carries more decimal places than places.
func exceedsScale(d decimal.Decimal, places int32) bool {
	return !d.Equal(d.Truncate(places))
}

// VarianceInput holds the money figures of a closing.
type VarianceInput struct {
	OpeningFloat     decimal.Decimal
	SystemSalesTotal decimal.Decimal
	DiscountTotal    decimal.Decimal
	InformedTotal    decimal.Decimal
}

type VarianceResult struct {
	ExpectedTotal decimal.Decimal
	Variance      decimal.Decimal // positive = surplus, negative = shortage
	Percent       decimal.Decimal
	Class         string
}

// CalculateVariance is pure:
//
//	expected = openingFloat + systemSalesTotal - discountTotal
//	variance = informedTotal - expected
//
// Both figures are rounded to cents.
func CalculateVariance(in VarianceInput) VarianceResult {
	expected := in.OpeningFloat.Add(in.SystemSalesTotal).Sub(in.DiscountTotal).Round(2)
	variance := in.InformedTotal.Round(2).Sub(expected)

	var pct decimal.Decimal
	if !expected.IsZero() {
		pct = variance.Div(expected).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return VarianceResult{
		ExpectedTotal: expected,
		Variance:      variance,
		Percent:       pct,
		Class:         classifyVariance(variance, expected, pct),
	}
}

// classifyVariance returns normal | warning | critical.
// normal: |pct| <= 1%, warning: <= 5%, critical: > 5%.
// With nothing expected, any difference is critical.
func classifyVariance(variance, expected, pct decimal.Decimal) string {
	if variance.IsZero() {
		return model.VarianceNormal
	}
	if expected.IsZero() {
		return model.VarianceCritical
	}
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(decimal.NewFromInt(1)):
		return model.VarianceNormal
	case abs.LessThanOrEqual(decimal.NewFromInt(5)):
		return model.VarianceWarning
	default:
		return model.VarianceCritical
	}
}
