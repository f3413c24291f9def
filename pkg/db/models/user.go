package models

import "time"

// User is the operational-store account row; only the columns the feature
// pipeline reads are mapped.
type User struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Email     string    `gorm:"column:email;not null"`
	Gender    string    `gorm:"column:gender"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

// Address stores a user's shipping addresses; the default one feeds the
// customer_city feature, falling back to country when city is empty.
type Address struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    uint      `gorm:"column:user_id;not null;index"`
	City      string    `gorm:"column:city"`
	Country   string    `gorm:"column:country"`
	IsDefault bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Address) TableName() string { return "addresses" }
