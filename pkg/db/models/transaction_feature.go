package models

import "time"

// TransactionFeature is the feature-store projection of one order line.
// Identity is the (order_id, product_id) pair; re-syncing the same pair
// overwrites every non-key column.
type TransactionFeature struct {
	CustomerID      uint      `gorm:"column:customer_id;not null"`
	OrderID         uint      `gorm:"column:order_id;primaryKey"`
	ProductID       uint      `gorm:"column:product_id;primaryKey"`
	OrderDate       time.Time `gorm:"column:order_date;not null"`
	ProductCategory string    `gorm:"column:product_category;size:100;not null"`
	Quantity        int       `gorm:"column:quantity;not null"`
	AvgPricePerItem float64   `gorm:"column:avg_price_per_item;not null"`
	ShippingFee     float64   `gorm:"column:shipping_fee;not null"`
	CouponUsed      bool      `gorm:"column:coupon_used;not null"`
	CouponCode      *string   `gorm:"column:coupon_code;size:50"`
	CustomerCity    string    `gorm:"column:customer_city;size:100"`
	Gender          string    `gorm:"column:gender;size:10"`
	MembershipDays  int       `gorm:"column:membership_days;not null"`
	GSTRate         float64   `gorm:"column:gst_rate;not null"`
	OrderMonth      int       `gorm:"column:order_month;not null"`
	DiscountValue   float64   `gorm:"column:discount_value;not null"`
	OrderAmount     float64   `gorm:"column:order_amount;not null"`
	Label           *int      `gorm:"column:label"`
}

func (TransactionFeature) TableName() string { return "transaction_features" }
