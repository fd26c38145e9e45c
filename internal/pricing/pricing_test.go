package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/validation"
)

func TestComputeQuote_Scenario(t *testing.T) {
	lines := []Line{
		{Unit: models.UnitFlat, UnitPrice: 100, Quantity: 1},
		{Unit: models.UnitHourly, UnitPrice: 50, Quantity: 2},
	}
	got := ComputeQuote(lines, 0.08, 15)

	assert.Equal(t, []float64{100, 100}, got.LinePrices)
	assert.Equal(t, 200.0, got.NetPrice)
	assert.Equal(t, 16.0, got.TaxAmount)
	assert.Equal(t, 15.0, got.DeliveryFee)
	assert.Equal(t, 231.0, got.TotalPrice)
}

func TestComputeQuote_RoundsHalfAwayFromZero(t *testing.T) {
	// 0.125 * 1 rounds to 0.13, 10.005 * 3 = 30.015 -> 30.02
	got := ComputeQuote([]Line{
		{Unit: models.UnitFlat, UnitPrice: 0.125, Quantity: 1},
		{Unit: models.UnitFlat, UnitPrice: 10.005, Quantity: 3},
	}, 0, 0)
	assert.Equal(t, []float64{0.13, 30.02}, got.LinePrices)
	assert.Equal(t, 30.15, got.NetPrice)
	assert.Equal(t, 30.15, got.TotalPrice)
}

func TestComputeQuote_TotalIsSumOfParts(t *testing.T) {
	lines := []Line{
		{Unit: models.UnitHourly, UnitPrice: 33.33, Quantity: 0.3},
		{Unit: models.UnitFlat, UnitPrice: 19.99, Quantity: 7},
	}
	got := ComputeQuote(lines, 0.08875, 12.5)
	// 9.999 -> 10.00; 139.93; net 149.93; tax 13.306 -> 13.31
	assert.Equal(t, 149.93, got.NetPrice)
	assert.Equal(t, 13.31, got.TaxAmount)
	assert.Equal(t, 175.74, got.TotalPrice)
}

func TestComputeQuote_OrderDoesNotChangeTotals(t *testing.T) {
	a := Line{Unit: models.UnitFlat, UnitPrice: 12.34, Quantity: 3}
	b := Line{Unit: models.UnitHourly, UnitPrice: 80, Quantity: 1.5}
	x := ComputeQuote([]Line{a, b}, 0.095, 5)
	y := ComputeQuote([]Line{b, a}, 0.095, 5)
	assert.Equal(t, x.NetPrice, y.NetPrice)
	assert.Equal(t, x.TotalPrice, y.TotalPrice)
}

func TestComputeQuote_Empty(t *testing.T) {
	got := ComputeQuote(nil, 0.1, 20)
	assert.Zero(t, got.NetPrice)
	assert.Zero(t, got.TaxAmount)
	assert.Equal(t, 20.0, got.TotalPrice)
}

func TestComputeEstimate(t *testing.T) {
	lines := []Line{{Unit: models.UnitFlat, UnitPrice: 500, Quantity: 1}}

	t.Run("discount and deposit", func(t *testing.T) {
		got := ComputeEstimate(lines, 50, true, 30)
		assert.Equal(t, 500.0, got.Subtotal)
		assert.Equal(t, 450.0, got.Total)
		assert.Equal(t, 135.0, got.DepositAmount)
	})

	t.Run("discount floor", func(t *testing.T) {
		got := ComputeEstimate(lines, 800, true, 50)
		assert.Equal(t, 500.0, got.Subtotal)
		assert.Zero(t, got.Total)
		assert.Zero(t, got.DepositAmount)
	})

	t.Run("no deposit", func(t *testing.T) {
		got := ComputeEstimate(lines, 0, false, 40)
		assert.Equal(t, 500.0, got.Total)
		assert.Zero(t, got.DepositAmount)
		assert.Zero(t, got.DepositPercentage)
	})

	t.Run("deposit rounds to cents", func(t *testing.T) {
		got := ComputeEstimate([]Line{{Unit: models.UnitFlat, UnitPrice: 333.33, Quantity: 1}}, 0, true, 33.5)
		// 333.33 * 0.335 = 111.66555
		assert.Equal(t, 111.67, got.DepositAmount)
	})
}

func TestValidateLines(t *testing.T) {
	v := validation.Violations{}
	ValidateLines("quoteItems", []Line{
		{Unit: models.UnitHourly, UnitPrice: 10, Quantity: 0.05},
		{Unit: models.UnitFlat, UnitPrice: -1, Quantity: 0},
		{Unit: "daily", UnitPrice: 1, Quantity: 1},
		{Unit: models.UnitHourly, UnitPrice: 10, Quantity: 0.1},
	}, v)

	assert.Equal(t, "below_minimum", v["quoteItems[0].quantity"])
	assert.Equal(t, "must_not_be_negative", v["quoteItems[1].unitPrice"])
	assert.NotContains(t, v, "quoteItems[1].quantity")
	assert.Equal(t, "invalid_choice", v["quoteItems[2].unit"])
	assert.NotContains(t, v, "quoteItems[3].quantity")
}

func TestValidateEstimate(t *testing.T) {
	v := validation.Violations{}
	ValidateEstimate(-5, true, 120, v)
	assert.Contains(t, v, "discount")
	assert.Contains(t, v, "depositPercentage")

	v = validation.Violations{}
	ValidateEstimate(0, false, 120, v)
	assert.True(t, v.Empty())
}

func ptr(f float64) *float64 { return &f }

func TestResolveTaxRate(t *testing.T) {
	cases := []struct {
		name     string
		location string
		manual   *float64
		wantLoc  string
		wantRate float64
	}{
		{"table rate", "New York, NY", nil, "New York, NY", 0.08875},
		{"within tolerance", "New York, NY", ptr(0.088755), "New York, NY", 0.08875},
		{"override", "New York, NY", ptr(0.09), CustomLocation, 0.09},
		{"custom", CustomLocation, ptr(0.07), CustomLocation, 0.07},
		{"manual without location", "", ptr(0.05), CustomLocation, 0.05},
		{"no tax", "", nil, "", 0},
		{"zero-rate location", "Portland, OR", nil, "Portland, OR", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loc, rate, err := ResolveTaxRate(tc.location, tc.manual)
			require.NoError(t, err)
			assert.Equal(t, tc.wantLoc, loc)
			assert.InDelta(t, tc.wantRate, rate, 1e-12)
		})
	}
}

func TestResolveTaxRate_Errors(t *testing.T) {
	_, _, err := ResolveTaxRate("Atlantis, XX", nil)
	assert.ErrorIs(t, err, ErrUnknownLocation)

	_, _, err = ResolveTaxRate("", ptr(1))
	assert.ErrorIs(t, err, ErrTaxRateRange)

	_, _, err = ResolveTaxRate("Miami, FL", ptr(-0.01))
	assert.ErrorIs(t, err, ErrTaxRateRange)
}

func TestTaxRatesSorted(t *testing.T) {
	rates := TaxRates()
	require.NotEmpty(t, rates)
	for i := 1; i < len(rates); i++ {
		assert.Less(t, rates[i-1].Location, rates[i].Location)
	}
	r, ok := LookupTaxRate("Chicago, IL")
	assert.True(t, ok)
	assert.Equal(t, 0.1025, r)
}
