package service_test

import (
	"testing"

	"fabrisys/internal/model"
	"fabrisys/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestCalculateVariance(t *testing.T) {
	tests := []struct {
		name                         string
		float, sales, discount, told string
		expected, variance, pct      string
		class                        string
	}{
		{"exact", "100", "30", "0", "130", "130.00", "0.00", "0", model.VarianceNormal},
		{"shortage", "50", "50", "0", "90", "100.00", "-10.00", "-10", model.VarianceCritical},
		{"surplus within 1%", "100", "0", "0", "101", "100.00", "1.00", "1", model.VarianceNormal},
		{"warning band", "100", "0", "0", "96", "100.00", "-4.00", "-4", model.VarianceWarning},
		{"discount subtracted", "0", "50", "5", "45", "45.00", "0.00", "0", model.VarianceNormal},
		{"rounds to cents", "10.005", "0", "0", "10.01", "10.01", "0.00", "0", model.VarianceNormal},
		{"nothing expected", "0", "0", "0", "0.01", "0.00", "0.01", "0", model.VarianceCritical},
		{"nothing expected, nothing told", "0", "0", "0", "0", "0.00", "0.00", "0", model.VarianceNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.CalculateVariance(service.VarianceInput{
				OpeningFloat:     dec(tt.float),
				SystemSalesTotal: dec(tt.sales),
				DiscountTotal:    dec(tt.discount),
				InformedTotal:    dec(tt.told),
			})
			assert.Equal(t, tt.expected, got.ExpectedTotal.StringFixed(2))
			assert.Equal(t, tt.variance, got.Variance.StringFixed(2))
			assert.Equal(t, tt.pct, got.Percent.String())
			assert.Equal(t, tt.class, got.Class)
		})
	}
}

func TestCalculateVariance_TinyDifferenceIsNotZeroExpected(t *testing.T) {
	// 0.01 on 100000 rounds to 0.00% but is still a normal variance.
	got := service.CalculateVariance(service.VarianceInput{
		OpeningFloat:  dec("100000"),
		InformedTotal: dec("100000.01"),
	})
	assert.Equal(t, "0", got.Percent.String())
	assert.Equal(t, model.VarianceNormal, got.Class)
}
