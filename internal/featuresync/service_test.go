package featuresync

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoppulse/recsys-backend/pkg/config"
	"github.com/shoppulse/recsys-backend/pkg/db"
	"github.com/shoppulse/recsys-backend/pkg/db/models"
	"github.com/shoppulse/recsys-backend/pkg/logger"
)

func syncTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "featuresync-test", Output: io.Discard})
}

func openTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return conn
}

func setupStores(t *testing.T) (*db.Client, *db.Client) {
	t.Helper()

	operational := openTestDB(t, "operational")
	require.NoError(t, operational.AutoMigrate(
		&models.User{}, &models.Address{}, &models.Coupon{},
		&models.Category{}, &models.Product{},
		&models.Order{}, &models.OrderItem{},
	))

	features := openTestDB(t, "features")
	require.NoError(t, features.AutoMigrate(&models.TransactionFeature{}))

	return db.FromGorm(operational, config.RoleOperational),
		db.FromGorm(features, config.RoleFeatureStore)
}

// seedOrder writes one order with two line items for user 1, plus the
// catalog and account rows the sync joins against.
func seedOrder(t *testing.T, conn *gorm.DB, orderedAt time.Time) {
	t.Helper()

	require.NoError(t, conn.Create(&models.User{
		ID: 1, Email: "ana@example.com", Gender: "F",
		CreatedAt: orderedAt.AddDate(0, -3, 0),
	}).Error)
	require.NoError(t, conn.Create(&models.Address{
		UserID: 1, City: "Austin", Country: "USA", IsDefault: true,
	}).Error)
	require.NoError(t, conn.Create(&models.Coupon{
		ID: 5, Code: "WELCOME10", DiscountValue: decimal.NewFromInt(5),
	}).Error)
	require.NoError(t, conn.Create(&models.Category{
		ID: 1, Name: "Bags", GSTRate: decimal.NewFromFloat(0.18),
	}).Error)
	require.NoError(t, conn.Create(&models.Category{
		ID: 2, Name: "Nest", GSTRate: decimal.NewFromFloat(0.12),
	}).Error)
	require.NoError(t, conn.Create(&models.Product{ID: 100, Name: "Tote", CategoryID: 1}).Error)
	require.NoError(t, conn.Create(&models.Product{ID: 200, Name: "Feeder", CategoryID: 2}).Error)

	couponID := uint(5)
	require.NoError(t, conn.Create(&models.Order{
		ID: 10, UserID: 1, CouponID: &couponID,
		TotalPrice:  decimal.NewFromFloat(63.48),
		ShippingFee: decimal.NewFromFloat(4.99),
		CreatedAt:   orderedAt,
	}).Error)
	require.NoError(t, conn.Create(&models.OrderItem{
		OrderID: 10, ProductID: 100, Quantity: 2, Price: decimal.NewFromFloat(24.50),
	}).Error)
	require.NoError(t, conn.Create(&models.OrderItem{
		OrderID: 10, ProductID: 200, Quantity: 1, Price: decimal.NewFromFloat(9.49),
	}).Error)
}

func newTestService(operational, features *db.Client, cfg config.SyncConfig) *Service {
	svc := NewService(operational, features, cfg, syncTestLogger())
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestRunSyncsWindowIntoFeatureStore(t *testing.T) {
	operational, features := setupStores(t)
	seedOrder(t, operational.DB(), time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))

	svc := newTestService(operational, features, config.SyncConfig{WindowDays: 365})
	require.NoError(t, svc.Run(context.Background()))

	var rows []models.TransactionFeature
	require.NoError(t, features.DB().Order("product_id").Find(&rows).Error)
	require.Len(t, rows, 2)

	assert.Equal(t, "Bags", rows[0].ProductCategory)
	assert.Equal(t, "Nest", rows[1].ProductCategory)
	assert.Equal(t, uint(1), rows[0].CustomerID)
	assert.Equal(t, 3, rows[0].OrderMonth)
	assert.Equal(t, "Austin", rows[0].CustomerCity)
	assert.True(t, rows[0].CouponUsed)
	require.NotNil(t, rows[0].CouponCode)
	assert.Equal(t, "WELCOME10", *rows[0].CouponCode)
	assert.InDelta(t, 24.50, rows[0].AvgPricePerItem, 1e-6)
	assert.InDelta(t, 0.12, rows[1].GSTRate, 1e-6)
}

func TestRunIsIdempotent(t *testing.T) {
	operational, features := setupStores(t)
	seedOrder(t, operational.DB(), time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))

	svc := newTestService(operational, features, config.SyncConfig{WindowDays: 365})
	require.NoError(t, svc.Run(context.Background()))
	require.NoError(t, svc.Run(context.Background()))

	var count int64
	require.NoError(t, features.DB().Model(&models.TransactionFeature{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var row models.TransactionFeature
	require.NoError(t, features.DB().Where("order_id = ? AND product_id = ?", 10, 100).First(&row).Error)
	assert.InDelta(t, 24.50, row.AvgPricePerItem, 1e-6)
}

func TestRunSkipsOrdersOutsideWindow(t *testing.T) {
	operational, features := setupStores(t)
	seedOrder(t, operational.DB(), time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))

	svc := newTestService(operational, features, config.SyncConfig{WindowDays: 365})
	require.NoError(t, svc.Run(context.Background()))

	var count int64
	require.NoError(t, features.DB().Model(&models.TransactionFeature{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRunRetiresSourceAfterCommit(t *testing.T) {
	operational, features := setupStores(t)
	seedOrder(t, operational.DB(), time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))

	svc := newTestService(operational, features, config.SyncConfig{WindowDays: 365, RetireSource: true})
	require.NoError(t, svc.Run(context.Background()))

	var orders int64
	require.NoError(t, operational.DB().Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)

	var featureRows int64
	require.NoError(t, features.DB().Model(&models.TransactionFeature{}).Count(&featureRows).Error)
	assert.Equal(t, int64(2), featureRows)
}

func TestRunLeavesSourceByDefault(t *testing.T) {
	operational, features := setupStores(t)
	seedOrder(t, operational.DB(), time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))

	svc := newTestService(operational, features, config.SyncConfig{WindowDays: 365})
	require.NoError(t, svc.Run(context.Background()))

	var orders int64
	require.NoError(t, operational.DB().Model(&models.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
}
