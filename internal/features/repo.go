package features

import (
	"context"

	"gorm.io/gorm"

	"github.com/shoppulse/recsys-backend/pkg/db/models"
)

// Repository is the read side of the feature store, shared by training and
// inference. Rows come back in chronological order so the trailing holdout
// slice is always the most recent data.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListAll(ctx context.Context) ([]models.TransactionFeature, error)
	ListCategories(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a feature repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListAll(ctx context.Context) ([]models.TransactionFeature, error) {
	var rows []models.TransactionFeature
	err := r.db.WithContext(ctx).
		Order("order_date ASC, order_id ASC, product_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&models.TransactionFeature{}).
		Distinct("product_category").
		Order("product_category ASC").
		Pluck("product_category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TransactionFeature{}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
