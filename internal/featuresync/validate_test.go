package featuresync

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoppulse/recsys-backend/pkg/db/models"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
)

func validFeature() models.TransactionFeature {
	return models.TransactionFeature{
		CustomerID:      1,
		OrderID:         10,
		ProductID:       100,
		OrderDate:       time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		ProductCategory: "Bags",
		Quantity:        2,
		AvgPricePerItem: 24.50,
		ShippingFee:     4.99,
		GSTRate:         0.18,
		OrderMonth:      3,
		MembershipDays:  90,
		OrderAmount:     53.99,
	}
}

func TestValidateBatchAcceptsGoodRows(t *testing.T) {
	t.Parallel()

	batch := []models.TransactionFeature{validFeature(), validFeature()}
	batch[1].OrderID = 11
	assert.NoError(t, ValidateBatch(batch))
}

func TestValidateBatchRejectsWholeBatch(t *testing.T) {
	t.Parallel()

	good := validFeature()
	bad := validFeature()
	bad.OrderID = 0
	bad.OrderMonth = 13

	err := ValidateBatch([]models.TransactionFeature{good, bad})
	require.Error(t, err)

	coded := apperrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, apperrors.CodeValidation, coded.Code())

	cause := errors.Unwrap(coded)
	require.NotNil(t, cause)
	assert.Contains(t, cause.Error(), "OrderID")
	assert.Contains(t, cause.Error(), "OrderMonth")
}

func TestValidateBatchEmptyIsFine(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateBatch(nil))
}
