package models

import (
	"time"

	"github.com/shoppulse/recsys-backend/pkg/enums"
)

// Recommendation holds the single live recommendation row per user. A new
// inference cycle updates the row in place rather than appending.
type Recommendation struct {
	ID               uint            `gorm:"column:id;primaryKey;autoIncrement"`
	UserID           uint            `gorm:"column:user_id;not null;uniqueIndex"`
	RecommendedItems string          `gorm:"column:recommended_items;not null"`
	ModelType        enums.ModelType `gorm:"column:model_type;not null"`
	GeneratedAt      time.Time       `gorm:"column:generated_at;not null"`
}

func (Recommendation) TableName() string { return "recommendations" }
