package models

import "github.com/shopspring/decimal"

// Coupon is an operational-store discount code.
type Coupon struct {
	ID            uint            `gorm:"column:id;primaryKey;autoIncrement"`
	Code          string          `gorm:"column:code;not null;uniqueIndex"`
	DiscountValue decimal.Decimal `gorm:"column:discount_value;type:decimal(10,2);not null"`
}

func (Coupon) TableName() string { return "coupons" }
