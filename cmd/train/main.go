// Command train runs the model pipeline once and exits: fit-or-load the
// category encoder, train a classifier over the feature store, or score the
// feature store with a named checkpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/shoppulse/recsys-backend/internal/artifacts"
	"github.com/shoppulse/recsys-backend/internal/experiment"
	"github.com/shoppulse/recsys-backend/internal/features"
	"github.com/shoppulse/recsys-backend/internal/inference"
	"github.com/shoppulse/recsys-backend/internal/training"
	"github.com/shoppulse/recsys-backend/pkg/bigquery"
	"github.com/shoppulse/recsys-backend/pkg/config"
	"github.com/shoppulse/recsys-backend/pkg/db"
	"github.com/shoppulse/recsys-backend/pkg/logger"
	"github.com/shoppulse/recsys-backend/pkg/migrate"
	"github.com/shoppulse/recsys-backend/pkg/storage/gcs"
)

func main() {
	mode := flag.String("mode", "train", "pipeline mode: train|inference")
	checkpoint := flag.String("checkpoint", "", "checkpoint object for -mode=inference (defaults to the newest)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "train"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "train",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "mode": *mode})

	featureStore, err := db.New(ctx, config.RoleFeatureStore, cfg.FeatureDB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap feature-store database", err)
		os.Exit(1)
	}
	defer featureStore.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, featureStore); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var blob artifacts.Blob
	if cfg.GCS.BucketName != "" {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap gcs", err)
			os.Exit(1)
		}
		blob = gcsClient.BucketHandle("")
	}
	store, err := artifacts.NewStore(blob, cfg.Artifacts, logg)
	if err != nil {
		logg.Error(ctx, "failed to open artifact store", err)
		os.Exit(1)
	}

	switch *mode {
	case "train":
		err = runTraining(ctx, cfg, logg, featureStore, store)
	case "inference":
		err = runInference(ctx, cfg, logg, featureStore, store, *checkpoint)
	default:
		fmt.Fprintln(os.Stderr, "unknown -mode value:", *mode)
		os.Exit(1)
	}
	if err != nil {
		logg.Error(ctx, *mode+" run failed", err)
		os.Exit(1)
	}
}

func runTraining(ctx context.Context, cfg *config.Config, logg *logger.Logger, featureStore *db.Client, store *artifacts.Store) error {
	repo := features.NewRepository(featureStore.DB())

	categories, err := repo.ListCategories(ctx)
	if err != nil {
		return err
	}
	target, err := features.LoadOrFitEncoder(ctx, store, cfg.Artifacts.EncoderObject, categories, logg)
	if err != nil {
		return err
	}

	rows, err := repo.ListAll(ctx)
	if err != nil {
		return err
	}
	encoder, err := features.NewEncoder(target, logg)
	if err != nil {
		return err
	}
	encoded, err := encoder.Encode(ctx, rows)
	if err != nil {
		return err
	}
	train, eval := features.Split(encoded, cfg.Training.HoldoutRows)

	setup, err := training.Resolve(cfg.Training)
	if err != nil {
		return err
	}
	ckpt := training.NewCheckpointManager(store, cfg.Artifacts.CheckpointPrefix, logg)

	var sink *experiment.Writer
	if cfg.GCP.ProjectID != "" {
		bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			return err
		}
		defer bqClient.Close()
		sink, err = experiment.New(bqClient, experiment.Config{
			RunTable:    cfg.BigQuery.TrainingRunTable,
			MetricTable: cfg.BigQuery.EpochMetricTable,
		})
		if err != nil {
			return err
		}
	}

	trainer := training.NewTrainer(setup, ckpt, sink, logg)
	result, err := trainer.Run(ctx, train, eval, target.NumClasses())
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"run_id":          result.RunID,
		"best_loss":       result.BestLoss,
		"best_accuracy":   result.BestAccuracy,
		"checkpoint":      result.FinalCheckpoint,
		"training_rows":   train.Rows(),
		"holdout_rows":    eval.Rows(),
		"category_labels": target.NumClasses(),
	})
	logg.Info(ctx, "training run complete")
	return nil
}

func runInference(ctx context.Context, cfg *config.Config, logg *logger.Logger, featureStore *db.Client, store *artifacts.Store, checkpoint string) error {
	operational, err := db.New(ctx, config.RoleOperational, cfg.OperationalDB, logg)
	if err != nil {
		return err
	}
	defer operational.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, operational); err != nil {
		return err
	}

	service := inference.NewService(operational, featureStore, store, cfg.Artifacts, logg)
	if checkpoint != "" {
		return service.RunWithCheckpoint(ctx, checkpoint)
	}
	return service.Run(ctx)
}
