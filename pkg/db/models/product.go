package models

import "github.com/shopspring/decimal"

// Product is an operational-store catalog entry.
type Product struct {
	ID         uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string `gorm:"column:name;not null"`
	CategoryID uint   `gorm:"column:category_id;not null;index"`
}

func (Product) TableName() string { return "products" }

// Category names the class vocabulary the classifier predicts over.
type Category struct {
	ID      uint            `gorm:"column:id;primaryKey;autoIncrement"`
	Name    string          `gorm:"column:name;not null;uniqueIndex"`
	GSTRate decimal.Decimal `gorm:"column:gst_rate;type:decimal(5,2);not null"`
}

func (Category) TableName() string { return "categories" }
