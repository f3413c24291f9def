package featuresync

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func decPtr(d decimal.Decimal) *decimal.Decimal { return &d }

func sampleSourceRow() SourceRow {
	return SourceRow{
		CustomerID:     1,
		OrderID:        10,
		ProductID:      100,
		OrderDate:      time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		CategoryName:   "Bags",
		Quantity:       2,
		Price:          decimal.NewFromFloat(24.50),
		ShippingFee:    decimal.NewFromFloat(4.99),
		TotalPrice:     decimal.NewFromFloat(53.99),
		GSTRate:        decimal.NewFromFloat(0.18),
		Gender:         "F",
		AccountCreated: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		AddressCity:    strPtr("Austin"),
	}
}

func TestTransformDerivesFeatureColumns(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	row := sampleSourceRow()
	row.CouponCode = strPtr("WELCOME10")
	row.DiscountValue = decPtr(decimal.NewFromFloat(5.00))

	got := Transform([]SourceRow{row}, now)
	require.Len(t, got, 1)
	feature := got[0]

	assert.Equal(t, uint(1), feature.CustomerID)
	assert.Equal(t, uint(10), feature.OrderID)
	assert.Equal(t, uint(100), feature.ProductID)
	assert.Equal(t, "Bags", feature.ProductCategory)
	assert.Equal(t, 3, feature.OrderMonth)
	assert.Equal(t, 90, feature.MembershipDays)
	assert.InDelta(t, 24.50, feature.AvgPricePerItem, 1e-9)
	assert.InDelta(t, 53.99, feature.OrderAmount, 1e-9)
	assert.InDelta(t, 5.00, feature.DiscountValue, 1e-9)
	assert.Equal(t, "Austin", feature.CustomerCity)
	assert.True(t, feature.CouponUsed)
	require.NotNil(t, feature.CouponCode)
	assert.Equal(t, "WELCOME10", *feature.CouponCode)
	assert.Nil(t, feature.Label)
}

func TestTransformWithoutCoupon(t *testing.T) {
	t.Parallel()

	got := Transform([]SourceRow{sampleSourceRow()}, time.Now().UTC())
	require.Len(t, got, 1)
	assert.False(t, got[0].CouponUsed)
	assert.Nil(t, got[0].CouponCode)
	assert.Zero(t, got[0].DiscountValue)
}

func TestTransformCityFallsBackToCountry(t *testing.T) {
	t.Parallel()

	row := sampleSourceRow()
	row.AddressCity = nil
	row.AddressCountry = strPtr("India")
	got := Transform([]SourceRow{row}, time.Now().UTC())
	assert.Equal(t, "India", got[0].CustomerCity)

	row.AddressCountry = nil
	got = Transform([]SourceRow{row}, time.Now().UTC())
	assert.Equal(t, "", got[0].CustomerCity)
}

func TestTransformClampsMembershipDays(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	row := sampleSourceRow()
	row.AccountCreated = now.AddDate(0, 0, 7)
	got := Transform([]SourceRow{row}, now)
	assert.Equal(t, 0, got[0].MembershipDays)

	row.AccountCreated = time.Time{}
	got = Transform([]SourceRow{row}, now)
	assert.Equal(t, 0, got[0].MembershipDays)
}
