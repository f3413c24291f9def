package featuresync

import (
	"strings"
	"time"

	"github.com/shoppulse/recsys-backend/pkg/db/models"
)

// Transform projects joined source rows onto the TransactionFeature schema.
// The reference time fixes membership-day computation for the whole batch.
func Transform(rows []SourceRow, now time.Time) []models.TransactionFeature {
	out := make([]models.TransactionFeature, 0, len(rows))
	for _, row := range rows {
		out = append(out, transformRow(row, now))
	}
	return out
}

func transformRow(row SourceRow, now time.Time) models.TransactionFeature {
	feature := models.TransactionFeature{
		CustomerID:      row.CustomerID,
		OrderID:         row.OrderID,
		ProductID:       row.ProductID,
		OrderDate:       row.OrderDate,
		ProductCategory: row.CategoryName,
		Quantity:        row.Quantity,
		ShippingFee:     row.ShippingFee.InexactFloat64(),
		Gender:          row.Gender,
		GSTRate:         row.GSTRate.InexactFloat64(),
		OrderMonth:      int(row.OrderDate.Month()),
		OrderAmount:     row.TotalPrice.InexactFloat64(),
		CustomerCity:    resolveCity(row),
		MembershipDays:  membershipDays(row.AccountCreated, now),
	}

	if row.Quantity > 0 {
		feature.AvgPricePerItem = row.Price.InexactFloat64()
	}

	if row.CouponCode != nil && strings.TrimSpace(*row.CouponCode) != "" {
		code := strings.TrimSpace(*row.CouponCode)
		feature.CouponUsed = true
		feature.CouponCode = &code
	}
	if row.DiscountValue != nil {
		feature.DiscountValue = row.DiscountValue.InexactFloat64()
	}

	return feature
}

// resolveCity prefers the default address city and falls back to the
// country; either may be absent.
func resolveCity(row SourceRow) string {
	if row.AddressCity != nil && strings.TrimSpace(*row.AddressCity) != "" {
		return strings.TrimSpace(*row.AddressCity)
	}
	if row.AddressCountry != nil {
		return strings.TrimSpace(*row.AddressCountry)
	}
	return ""
}

func membershipDays(accountCreated, now time.Time) int {
	if accountCreated.IsZero() || accountCreated.After(now) {
		return 0
	}
	return int(now.Sub(accountCreated).Hours() / 24)
}
