package features

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoppulse/recsys-backend/pkg/db/models"
)

func setupFeatureTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.TransactionFeature{}))
	return conn
}

func TestListAllOrdersChronologically(t *testing.T) {
	t.Parallel()

	conn := setupFeatureTestDB(t)
	rows := sampleRows()
	// Insert out of order; reads must come back by order_date.
	require.NoError(t, conn.Create(&rows[2]).Error)
	require.NoError(t, conn.Create(&rows[0]).Error)
	require.NoError(t, conn.Create(&rows[1]).Error)

	repo := NewRepository(conn)
	got, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, uint(10), got[0].OrderID)
	assert.Equal(t, uint(11), got[1].OrderID)
	assert.Equal(t, uint(12), got[2].OrderID)
	assert.True(t, got[0].OrderDate.Before(got[2].OrderDate))
}

func TestListCategoriesDistinctSorted(t *testing.T) {
	t.Parallel()

	conn := setupFeatureTestDB(t)
	rows := sampleRows()
	for i := range rows {
		require.NoError(t, conn.Create(&rows[i]).Error)
	}

	repo := NewRepository(conn)
	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Bags", "Nest"}, categories)
}

func TestCount(t *testing.T) {
	t.Parallel()

	conn := setupFeatureTestDB(t)
	repo := NewRepository(conn)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	row := models.TransactionFeature{
		CustomerID: 1, OrderID: 1, ProductID: 1,
		OrderDate: time.Now(), ProductCategory: "Bags", Quantity: 1,
	}
	require.NoError(t, conn.Create(&row).Error)

	count, err = repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
