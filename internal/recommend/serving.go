package recommend

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/shoppulse/recsys-backend/pkg/db/models"
	"github.com/shoppulse/recsys-backend/pkg/logger"
)

// Serving resolves a user's stored recommendation row into concrete catalog
// products. Lookups degrade to an empty list rather than erroring so a
// missing or stale row never breaks a caller.
type Serving struct {
	repo       Repository
	catalog    *gorm.DB
	logg       *logger.Logger
	maxDisplay int
}

func NewServing(repo Repository, catalog *gorm.DB, maxDisplay int, logg *logger.Logger) *Serving {
	return &Serving{repo: repo, catalog: catalog, logg: logg, maxDisplay: maxDisplay}
}

// ItemsFor returns up to maxDisplay products from the category the model
// predicted for the user. No recommendation row, an unknown category, or an
// empty catalog all yield an empty slice.
func (s *Serving) ItemsFor(ctx context.Context, userID uint) ([]models.Product, error) {
	row, err := s.repo.GetLatest(ctx, userID)
	if err != nil {
		s.logg.Warn(ctx, "serving recommendations without a stored row")
		return nil, nil
	}

	category := firstItem(row.RecommendedItems)
	if category == "" {
		return nil, nil
	}

	var products []models.Product
	err = s.catalog.WithContext(ctx).
		Joins("JOIN categories ON categories.id = products.category_id").
		Where("categories.name = ?", category).
		Order("products.id ASC").
		Limit(s.maxDisplay).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// firstItem extracts the leading label from the stored comma-joined list.
func firstItem(items string) string {
	for _, part := range strings.Split(items, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// JoinItems renders predicted labels into the stored column format.
func JoinItems(labels []string) string {
	return strings.Join(labels, ",")
}
