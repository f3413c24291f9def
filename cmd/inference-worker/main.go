package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shoppulse/recsys-backend/internal/artifacts"
	"github.com/shoppulse/recsys-backend/internal/inference"
	"github.com/shoppulse/recsys-backend/internal/jobs"
	"github.com/shoppulse/recsys-backend/internal/ops"
	"github.com/shoppulse/recsys-backend/internal/recommend"
	"github.com/shoppulse/recsys-backend/pkg/config"
	"github.com/shoppulse/recsys-backend/pkg/db"
	"github.com/shoppulse/recsys-backend/pkg/logger"
	"github.com/shoppulse/recsys-backend/pkg/metrics"
	"github.com/shoppulse/recsys-backend/pkg/migrate"
	"github.com/shoppulse/recsys-backend/pkg/redis"
	"github.com/shoppulse/recsys-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "inference-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "inference-worker"

	logg = logger.New(logger.Options{
		ServiceName: "inference-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	operational, err := db.New(context.Background(), config.RoleOperational, cfg.OperationalDB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap operational database", err)
		os.Exit(1)
	}
	defer closeQuietly(logg, operational, "operational database")

	featureStore, err := db.New(context.Background(), config.RoleFeatureStore, cfg.FeatureDB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap feature-store database", err)
		os.Exit(1)
	}
	defer closeQuietly(logg, featureStore, "feature-store database")

	for _, client := range []*db.Client{operational, featureStore} {
		if err := migrate.MaybeRunDev(context.Background(), cfg, logg, client); err != nil {
			logg.Error(context.Background(), "failed to run dev migrations", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer closeQuietly(logg, redisClient, "redis")

	pingers := map[string]ops.Pinger{
		"operational_db": operational,
		"feature_db":     featureStore,
		"redis":          redisClient,
	}

	// Without a bucket the artifact store runs on the local directory alone.
	var blob artifacts.Blob
	if cfg.GCS.BucketName != "" {
		gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap gcs", err)
			os.Exit(1)
		}
		blob = gcsClient.BucketHandle("")
		pingers["gcs"] = gcsClient
	}

	store, err := artifacts.NewStore(blob, cfg.Artifacts, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open artifact store", err)
		os.Exit(1)
	}

	lock, err := jobs.NewRedisLock(redisClient, redisClient.LockKey("inference-worker", cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create inference lock", err)
		os.Exit(1)
	}

	inferenceService := inference.NewService(operational, featureStore, store, cfg.Artifacts, logg)
	registry := jobs.NewRegistry(jobs.NewJob("inference", inferenceService.Run))

	runner, err := jobs.NewService(jobs.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Inference.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create job runner", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	serving := recommend.NewServing(
		recommend.NewRepository(operational.DB()),
		operational.DB(),
		cfg.Inference.MaxDisplay,
		logg,
	)
	router := ops.NewRouter(ops.RouterParams{
		Config:  cfg,
		Logger:  logg,
		Pingers: pingers,
		Serving: serving,
	})
	go serveOps(ctx, logg, cfg.App.Port, router)

	logg.Info(ctx, "starting inference worker")
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "inference worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "inference worker shutting down gracefully")
}

func serveOps(ctx context.Context, logg *logger.Logger, port string, handler http.Handler) {
	server := &http.Server{Addr: ":" + port, Handler: handler}
	go func() {
		<-ctx.Done()
		server.Close()
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "ops server stopped", err)
	}
}

func closeQuietly(logg *logger.Logger, closer interface{ Close() error }, name string) {
	if err := closer.Close(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
