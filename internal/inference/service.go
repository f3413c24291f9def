// Package inference runs the batch scoring cycle: load the newest
// checkpoint and the persisted category encoder, score every feature row,
// and write one recommendation row per user.
package inference

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/shoppulse/recsys-backend/internal/artifacts"
	"github.com/shoppulse/recsys-backend/internal/features"
	"github.com/shoppulse/recsys-backend/internal/model"
	"github.com/shoppulse/recsys-backend/internal/recommend"
	"github.com/shoppulse/recsys-backend/internal/training"
	"github.com/shoppulse/recsys-backend/pkg/config"
	"github.com/shoppulse/recsys-backend/pkg/db"
	"github.com/shoppulse/recsys-backend/pkg/db/models"
	"github.com/shoppulse/recsys-backend/pkg/enums"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
	"github.com/shoppulse/recsys-backend/pkg/logger"
)

// Service scores the feature store against the latest trained model.
type Service struct {
	operational *db.Client
	featureRepo features.Repository
	recs        recommend.Repository
	store       *artifacts.Store
	ckpt        *training.CheckpointManager
	cfg         config.ArtifactsConfig
	logg        *logger.Logger

	now func() time.Time
}

func NewService(operational, featureStore *db.Client, store *artifacts.Store, cfg config.ArtifactsConfig, logg *logger.Logger) *Service {
	return &Service{
		operational: operational,
		featureRepo: features.NewRepository(featureStore.DB()),
		recs:        recommend.NewRepository(operational.DB()),
		store:       store,
		ckpt:        training.NewCheckpointManager(store, cfg.CheckpointPrefix, logg),
		cfg:         cfg,
		logg:        logg,
		now:         time.Now,
	}
}

// Run executes one inference cycle against the newest checkpoint. A missing
// checkpoint or encoder aborts the cycle; there is nothing sensible to score
// with.
func (s *Service) Run(ctx context.Context) error {
	object, err := s.ckpt.Latest(ctx)
	if err != nil {
		return err
	}
	return s.RunWithCheckpoint(ctx, object)
}

// RunWithCheckpoint scores the feature store with a specific checkpoint
// object.
func (s *Service) RunWithCheckpoint(ctx context.Context, object string) error {
	classifier, err := s.ckpt.Load(ctx, object)
	if err != nil {
		return err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"checkpoint": object})

	target, err := features.LoadEncoder(ctx, s.store, s.cfg.EncoderObject)
	if err != nil {
		return err
	}
	encoder, err := features.NewEncoder(target, s.logg)
	if err != nil {
		return err
	}

	rows, err := s.featureRepo.ListAll(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "reading feature store")
	}
	if len(rows) == 0 {
		s.logg.Info(ctx, "feature store is empty, skipping inference")
		return nil
	}

	encoded, err := encoder.Encode(ctx, rows)
	if err != nil {
		return err
	}

	predictions, err := s.predict(classifier, target, encoded)
	if err != nil {
		return err
	}

	recRows := s.buildRows(predictions)
	err = s.operational.WithTx(ctx, func(tx *gorm.DB) error {
		return s.recs.WithTx(tx).UpsertBatch(ctx, recRows)
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "writing recommendations")
	}

	s.logg.Info(ctx, fmt.Sprintf("wrote %d recommendations from %d feature rows", len(recRows), encoded.Rows()))
	return nil
}

// predict scores every row and keeps the last prediction per user, which is
// the row for their most recent order line given chronological reads.
func (s *Service) predict(classifier model.Classifier, target *features.LabelEncoder, encoded *features.Encoded) (map[uint]string, error) {
	logits := classifier.Forward(encoded.Wide, encoded.Deep, false)
	indices := model.Argmax(model.Softmax(logits))

	predictions := make(map[uint]string, len(indices))
	for i, classIdx := range indices {
		label, err := target.Inverse(classIdx)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnknownCategory, err, "decoding predicted class")
		}
		predictions[encoded.CustomerIDs[i]] = label
	}
	return predictions, nil
}

func (s *Service) buildRows(predictions map[uint]string) []models.Recommendation {
	userIDs := make([]uint, 0, len(predictions))
	for userID := range predictions {
		userIDs = append(userIDs, userID)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	generatedAt := s.now().UTC()
	rows := make([]models.Recommendation, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, models.Recommendation{
			UserID:           userID,
			RecommendedItems: recommend.JoinItems([]string{predictions[userID]}),
			ModelType:        enums.ModelTypeDeepLearning,
			GeneratedAt:      generatedAt,
		})
	}
	return rows
}
