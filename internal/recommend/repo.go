// Package recommend owns the recommendations table: one live row per user,
// replaced in place by each inference cycle, plus the read side that turns a
// stored row back into product suggestions.
package recommend

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shoppulse/recsys-backend/pkg/db/models"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
)

// Repository reads and writes recommendation rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertBatch(ctx context.Context, rows []models.Recommendation) error
	GetLatest(ctx context.Context, userID uint) (*models.Recommendation, error)
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// UpsertBatch replaces each user's row keyed on user_id. The generated_at
// column always moves forward so serving can tell a fresh row from a stale
// one.
func (r *repository) UpsertBatch(ctx context.Context, rows []models.Recommendation) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"recommended_items", "model_type", "generated_at"}),
		}).
		Create(&rows).Error
}

func (r *repository) GetLatest(ctx context.Context, userID uint) (*models.Recommendation, error) {
	var row models.Recommendation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "no recommendation for user")
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Recommendation{}).Count(&count).Error
	return count, err
}
