// Package featuresync is the ETL between the operational store and the
// feature store: a windowed join over recent orders, a transform into the
// TransactionFeature schema, and an idempotent upsert.
package featuresync

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shoppulse/recsys-backend/pkg/db/models"
)

// SourceRow is the joined operational-store projection, one row per order
// item. Coupon and address columns come from outer joins and may be null.
type SourceRow struct {
	CustomerID     uint
	OrderID        uint
	ProductID      uint
	OrderDate      time.Time
	CategoryName   string
	Quantity       int
	Price          decimal.Decimal
	ShippingFee    decimal.Decimal
	TotalPrice     decimal.Decimal
	GSTRate        decimal.Decimal
	CouponCode     *string
	DiscountValue  *decimal.Decimal
	Gender         string
	AccountCreated time.Time
	AddressCity    *string
	AddressCountry *string
}

// SourceRepository reads and retires operational rows.
type SourceRepository interface {
	WithTx(tx *gorm.DB) SourceRepository
	FetchWindow(ctx context.Context, since time.Time) ([]SourceRow, error)
	DeleteOrders(ctx context.Context, orderIDs []uint) error
}

type sourceRepository struct {
	db *gorm.DB
}

// NewSourceRepository builds the operational-store reader.
func NewSourceRepository(db *gorm.DB) SourceRepository {
	return &sourceRepository{db: db}
}

func (r *sourceRepository) WithTx(tx *gorm.DB) SourceRepository {
	if tx == nil {
		return r
	}
	return &sourceRepository{db: tx}
}

// FetchWindow joins orders through items, products and categories, with
// outer joins for coupons and the user's default address. One row per order
// item inside the window.
func (r *sourceRepository) FetchWindow(ctx context.Context, since time.Time) ([]SourceRow, error) {
	var rows []SourceRow
	err := r.db.WithContext(ctx).
		Table("orders").
		Select(`orders.user_id AS customer_id,
			orders.id AS order_id,
			order_items.product_id AS product_id,
			orders.created_at AS order_date,
			categories.name AS category_name,
			order_items.quantity AS quantity,
			order_items.price AS price,
			orders.shipping_fee AS shipping_fee,
			orders.total_price AS total_price,
			categories.gst_rate AS gst_rate,
			coupons.code AS coupon_code,
			coupons.discount_value AS discount_value,
			users.gender AS gender,
			users.created_at AS account_created,
			addresses.city AS address_city,
			addresses.country AS address_country`).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Joins("JOIN categories ON categories.id = products.category_id").
		Joins("JOIN users ON users.id = orders.user_id").
		Joins("LEFT JOIN coupons ON coupons.id = orders.coupon_id").
		Joins("LEFT JOIN addresses ON addresses.user_id = orders.user_id AND addresses.is_default").
		Where("orders.created_at >= ?", since).
		Order("orders.created_at ASC, orders.id ASC, order_items.product_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOrders removes consumed orders; items follow via cascade.
func (r *sourceRepository) DeleteOrders(ctx context.Context, orderIDs []uint) error {
	if len(orderIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("id IN ?", orderIDs).
		Delete(&models.Order{}).Error
}

// FeatureRepository is the write side of the feature store.
type FeatureRepository interface {
	WithTx(tx *gorm.DB) FeatureRepository
	UpsertBatch(ctx context.Context, rows []models.TransactionFeature) error
}

type featureRepository struct {
	db *gorm.DB
}

// NewFeatureRepository builds the feature-store writer.
func NewFeatureRepository(db *gorm.DB) FeatureRepository {
	return &featureRepository{db: db}
}

func (r *featureRepository) WithTx(tx *gorm.DB) FeatureRepository {
	if tx == nil {
		return r
	}
	return &featureRepository{db: tx}
}

// UpsertBatch inserts rows with update-all-on-conflict over the
// (order_id, product_id) key, so re-delivering a window is idempotent.
func (r *featureRepository) UpsertBatch(ctx context.Context, rows []models.TransactionFeature) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "product_id"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
}
