package features

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/shoppulse/recsys-backend/pkg/db/models"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
	"github.com/shoppulse/recsys-backend/pkg/logger"
)

// Encoded is the numeric view of a feature batch. Wide and Deep share row
// order with the input, so row i of either matrix describes rows[i].
type Encoded struct {
	Wide        *mat.Dense
	Deep        *mat.Dense
	Labels      []int
	CustomerIDs []uint
	// UnknownRows counts rows whose product_category fell outside the
	// persisted vocabulary.
	UnknownRows int
}

// Rows is the batch size.
func (e *Encoded) Rows() int {
	if e == nil || e.Wide == nil {
		return 0
	}
	r, _ := e.Wide.Dims()
	return r
}

// Encoder vectorizes transaction rows against a persisted target vocabulary.
// Non-target categoricals (gender, coupon code, city) get ephemeral per-batch
// encoders; only product_category must stay stable across runs.
type Encoder struct {
	target *LabelEncoder
	logg   *logger.Logger
}

func NewEncoder(target *LabelEncoder, logg *logger.Logger) (*Encoder, error) {
	if target == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "target label encoder is required")
	}
	return &Encoder{target: target, logg: logg}, nil
}

// Target exposes the persisted vocabulary, used at inference to decode
// predictions.
func (e *Encoder) Target() *LabelEncoder {
	return e.target
}

// Encode builds the wide/deep matrices and label vector for a batch. Unseen
// product categories become the unknown sentinel and are logged, never
// errors.
func (e *Encoder) Encode(ctx context.Context, rows []models.TransactionFeature) (*Encoded, error) {
	if len(rows) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "cannot encode an empty feature batch")
	}

	genders := make([]string, len(rows))
	codes := make([]string, len(rows))
	cities := make([]string, len(rows))
	for i, row := range rows {
		genders[i] = row.Gender
		codes[i] = couponCode(row)
		cities[i] = row.CustomerCity
	}

	genderEnc, err := Fit(genders)
	if err != nil {
		return nil, err
	}
	codeEnc, err := Fit(codes)
	if err != nil {
		return nil, err
	}
	cityEnc, err := Fit(cities)
	if err != nil {
		return nil, err
	}

	wide := mat.NewDense(len(rows), WideDim(), nil)
	deep := mat.NewDense(len(rows), DeepDim(), nil)
	labels := make([]int, len(rows))
	customers := make([]uint, len(rows))
	unknown := 0

	for i, row := range rows {
		couponUsed := 0.0
		if row.CouponUsed {
			couponUsed = 1.0
		}
		wide.SetRow(i, []float64{
			float64(row.CustomerID),
			float64(row.OrderID),
			float64(row.ProductID),
			float64(genderEnc.Transform(row.Gender)),
			float64(row.OrderMonth),
			float64(codeEnc.Transform(couponCode(row))),
			float64(cityEnc.Transform(row.CustomerCity)),
			couponUsed,
		})

		category := e.target.Transform(row.ProductCategory)
		if category == UnknownIndex {
			unknown++
			if e.logg != nil {
				e.logg.Warn(ctx, fmt.Sprintf("product category %q not in vocabulary, using unknown sentinel", row.ProductCategory))
			}
		}

		deep.SetRow(i, []float64{
			dateProxy(row),
			float64(category),
			float64(row.Quantity),
			row.AvgPricePerItem,
			row.ShippingFee,
			float64(row.MembershipDays),
			row.GSTRate,
			row.DiscountValue,
			row.OrderAmount,
		})

		labels[i] = category
		customers[i] = row.CustomerID
	}

	return &Encoded{
		Wide:        wide,
		Deep:        deep,
		Labels:      labels,
		CustomerIDs: customers,
		UnknownRows: unknown,
	}, nil
}

// dateProxy collapses the order date into a single ordered scalar: the month
// plus the day scaled into [0, 1).
func dateProxy(row models.TransactionFeature) float64 {
	if row.OrderDate.IsZero() {
		return 0
	}
	return float64(int(row.OrderDate.Month())) + float64(row.OrderDate.Day())/31.0
}

func couponCode(row models.TransactionFeature) string {
	if row.CouponCode == nil {
		return ""
	}
	return *row.CouponCode
}
