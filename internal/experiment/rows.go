package experiment

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// RunStatus values recorded on training run rows.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunRow is one training run in the training_runs table.
type RunRow struct {
	RunID         string                 `bigquery:"run_id"`
	ModelKind     string                 `bigquery:"model_kind"`
	OptimizerKind string                 `bigquery:"optimizer_kind"`
	Seed          int64                  `bigquery:"seed"`
	Epochs        int64                  `bigquery:"epochs"`
	BatchSize     int64                  `bigquery:"batch_size"`
	LearningRate  float64                `bigquery:"learning_rate"`
	NumClasses    int64                  `bigquery:"num_classes"`
	TrainRows     int64                  `bigquery:"train_rows"`
	HoldoutRows   int64                  `bigquery:"holdout_rows"`
	Status        string                 `bigquery:"status"`
	BestLoss      bigquery.NullFloat64   `bigquery:"best_loss"`
	BestAccuracy  bigquery.NullFloat64   `bigquery:"best_accuracy"`
	Checkpoint    bigquery.NullString    `bigquery:"checkpoint"`
	Error         bigquery.NullString    `bigquery:"error"`
	StartedAt     time.Time              `bigquery:"started_at"`
	FinishedAt    bigquery.NullTimestamp `bigquery:"finished_at"`
}

// EpochMetricRow is one epoch's tracked averages in training_epoch_metrics.
type EpochMetricRow struct {
	RunID        string               `bigquery:"run_id"`
	Epoch        int64                `bigquery:"epoch"`
	Loss         float64              `bigquery:"loss"`
	Accuracy     bigquery.NullFloat64 `bigquery:"accuracy"`
	Precision    bigquery.NullFloat64 `bigquery:"precision"`
	Recall       bigquery.NullFloat64 `bigquery:"recall"`
	F1           bigquery.NullFloat64 `bigquery:"f1"`
	LearningRate float64              `bigquery:"learning_rate"`
	LoggedAt     time.Time            `bigquery:"logged_at"`
}

// NullFloat wraps a metric value that may be absent for a given epoch.
func NullFloat(v float64, ok bool) bigquery.NullFloat64 {
	return bigquery.NullFloat64{Float64: v, Valid: ok}
}
