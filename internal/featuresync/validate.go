package featuresync

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/shoppulse/recsys-backend/pkg/db/models"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
)

var validate = validator.New()

// featureChecks mirrors the constraints of the transaction_features table
// so a bad batch is rejected before it reaches the feature store.
type featureChecks struct {
	CustomerID      uint    `validate:"required"`
	OrderID         uint    `validate:"required"`
	ProductID       uint    `validate:"required"`
	ProductCategory string  `validate:"required"`
	Quantity        int     `validate:"gte=0"`
	AvgPricePerItem float64 `validate:"gte=0"`
	ShippingFee     float64 `validate:"gte=0"`
	GSTRate         float64 `validate:"gte=0"`
	OrderMonth      int     `validate:"gte=1,lte=12"`
	MembershipDays  int     `validate:"gte=0"`
}

// ValidateBatch checks every feature row and rejects the whole batch when
// any row fails, so a partial window is never committed.
func ValidateBatch(features []models.TransactionFeature) error {
	var errs error
	for i, feature := range features {
		if err := validate.Struct(checksFor(feature)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("row %d (order %d, product %d): %w", i, feature.OrderID, feature.ProductID, flatten(err)))
		}
	}
	if errs != nil {
		return apperrors.Wrap(apperrors.CodeValidation, errs, "feature batch rejected")
	}
	return nil
}

func checksFor(feature models.TransactionFeature) featureChecks {
	return featureChecks{
		CustomerID:      feature.CustomerID,
		OrderID:         feature.OrderID,
		ProductID:       feature.ProductID,
		ProductCategory: feature.ProductCategory,
		Quantity:        feature.Quantity,
		AvgPricePerItem: feature.AvgPricePerItem,
		ShippingFee:     feature.ShippingFee,
		GSTRate:         feature.GSTRate,
		OrderMonth:      feature.OrderMonth,
		MembershipDays:  feature.MembershipDays,
	}
}

func flatten(err error) error {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var errs error
	for _, fe := range fieldErrs {
		errs = multierr.Append(errs, fmt.Errorf("%s %s", fe.Field(), validationMessage(fe)))
	}
	return errs
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return "is invalid"
}
