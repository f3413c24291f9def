package featuresync

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shoppulse/recsys-backend/pkg/config"
	"github.com/shoppulse/recsys-backend/pkg/db"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
	"github.com/shoppulse/recsys-backend/pkg/logger"
)

// Service runs one sync pass: fetch the order window from the operational
// store, transform and validate it, and upsert it into the feature store.
// The two stores commit independently; retirement of source orders only
// happens after the feature-store transaction has committed.
type Service struct {
	operational *db.Client
	features    *db.Client
	source      SourceRepository
	sink        FeatureRepository
	cfg         config.SyncConfig
	logg        *logger.Logger

	now func() time.Time
}

func NewService(operational, features *db.Client, cfg config.SyncConfig, logg *logger.Logger) *Service {
	return &Service{
		operational: operational,
		features:    features,
		source:      NewSourceRepository(operational.DB()),
		sink:        NewFeatureRepository(features.DB()),
		cfg:         cfg,
		logg:        logg,
		now:         time.Now,
	}
}

// Run executes a single sync iteration.
func (s *Service) Run(ctx context.Context) error {
	now := s.now().UTC()
	since := now.AddDate(0, 0, -s.cfg.WindowDays)
	ctx = s.logg.WithFields(ctx, map[string]any{"window_start": since.Format(time.RFC3339)})

	rows, err := s.source.FetchWindow(ctx, since)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "fetching order window")
	}
	if len(rows) == 0 {
		s.logg.Info(ctx, "no orders in window, nothing to sync")
		return nil
	}

	features := Transform(rows, now)
	if err := ValidateBatch(features); err != nil {
		return err
	}

	err = s.features.WithTx(ctx, func(tx *gorm.DB) error {
		return s.sink.WithTx(tx).UpsertBatch(ctx, features)
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "upserting feature batch")
	}

	s.logg.Info(ctx, fmt.Sprintf("synced %d feature rows from %d source rows", len(features), len(rows)))

	if !s.cfg.RetireSource {
		return nil
	}
	return s.retire(ctx, rows)
}

// retire deletes the synced orders from the operational store. It runs in
// its own transaction after the feature batch is committed, so a failure
// here leaves retired rows for the next pass rather than losing features.
func (s *Service) retire(ctx context.Context, rows []SourceRow) error {
	orderIDs := distinctOrderIDs(rows)
	err := s.operational.WithTx(ctx, func(tx *gorm.DB) error {
		return s.source.WithTx(tx).DeleteOrders(ctx, orderIDs)
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "retiring synced orders")
	}
	s.logg.Info(ctx, fmt.Sprintf("retired %d synced orders", len(orderIDs)))
	return nil
}

func distinctOrderIDs(rows []SourceRow) []uint {
	seen := make(map[uint]struct{}, len(rows))
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.OrderID]; ok {
			continue
		}
		seen[row.OrderID] = struct{}{}
		ids = append(ids, row.OrderID)
	}
	return ids
}
