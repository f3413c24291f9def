package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoppulse/recsys-backend/internal/recommend"
	"github.com/shoppulse/recsys-backend/pkg/config"
	"github.com/shoppulse/recsys-backend/pkg/db/models"
	"github.com/shoppulse/recsys-backend/pkg/enums"
	"github.com/shoppulse/recsys-backend/pkg/logger"
)

func opsTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "ops-test", Output: io.Discard})
}

func opsTestConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func TestLiveAlwaysOK(t *testing.T) {
	router := NewRouter(RouterParams{Config: opsTestConfig(), Logger: opsTestLogger()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-ShopPulse-Env"))
}

func TestReadyReflectsPingers(t *testing.T) {
	healthy := &fakePinger{}
	router := NewRouter(RouterParams{
		Config:  opsTestConfig(),
		Logger:  opsTestLogger(),
		Pingers: map[string]Pinger{"db": healthy},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy.err = errors.New("connection refused")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpointServesPrometheus(t *testing.T) {
	router := NewRouter(RouterParams{Config: opsTestConfig(), Logger: opsTestLogger()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRecommendationsRoute(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Recommendation{}, &models.Category{}, &models.Product{}))

	require.NoError(t, conn.Create(&models.Category{ID: 1, Name: "Bags", GSTRate: decimal.NewFromFloat(0.18)}).Error)
	require.NoError(t, conn.Create(&models.Product{ID: 100, Name: "Tote", CategoryID: 1}).Error)

	repo := recommend.NewRepository(conn)
	require.NoError(t, repo.UpsertBatch(context.Background(), []models.Recommendation{{
		UserID:           1,
		RecommendedItems: "Bags",
		ModelType:        enums.ModelTypeDeepLearning,
		GeneratedAt:      time.Now().UTC(),
	}}))

	serving := recommend.NewServing(repo, conn, 5, opsTestLogger())
	router := NewRouter(RouterParams{Config: opsTestConfig(), Logger: opsTestLogger(), Serving: serving})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/1/recommendations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Data struct {
			UserID   uint             `json:"user_id"`
			Products []models.Product `json:"products"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Data.Products, 1)
	assert.Equal(t, "Tote", payload.Data.Products[0].Name)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/abc/recommendations", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
