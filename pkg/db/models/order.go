package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is an operational-store purchase header.
type Order struct {
	ID          uint            `gorm:"column:id;primaryKey;autoIncrement"`
	UserID      uint            `gorm:"column:user_id;not null;index"`
	CouponID    *uint           `gorm:"column:coupon_id"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:decimal(10,2);not null"`
	ShippingFee decimal.Decimal `gorm:"column:shipping_fee;type:decimal(10,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is one purchased line within an order.
type OrderItem struct {
	ID        uint            `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   uint            `gorm:"column:order_id;not null;index"`
	ProductID uint            `gorm:"column:product_id;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null"`
}

func (OrderItem) TableName() string { return "order_items" }
