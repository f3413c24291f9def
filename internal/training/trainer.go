package training

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/shoppulse/recsys-backend/internal/experiment"
	"github.com/shoppulse/recsys-backend/internal/features"
	"github.com/shoppulse/recsys-backend/internal/model"
	"github.com/shoppulse/recsys-backend/pkg/enums"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
	"github.com/shoppulse/recsys-backend/pkg/logger"
)

const lossMetric = "loss"

// Result summarizes a completed training run.
type Result struct {
	RunID             string
	ModelKind         enums.ModelKind
	Epochs            int
	BestLoss          float64
	BestLossEpoch     int
	BestAccuracy      float64
	BestAccuracyEpoch int
	FinalCheckpoint   string
	EvalMetrics       map[enums.MetricName]float64
}

// Trainer runs the epoch loop for one resolved setup. It is not safe for
// concurrent runs; training is a single-active-run batch job.
type Trainer struct {
	setup *Setup
	ckpt  *CheckpointManager
	sink  *experiment.Writer
	logg  *logger.Logger
}

func NewTrainer(setup *Setup, ckpt *CheckpointManager, sink *experiment.Writer, logg *logger.Logger) *Trainer {
	return &Trainer{setup: setup, ckpt: ckpt, sink: sink, logg: logg}
}

// Run trains a fresh model over the train slice and scores the eval slice.
// Checkpoint failures are logged and training continues; everything else
// aborts the run.
func (t *Trainer) Run(ctx context.Context, train, eval *features.Encoded, numClasses int) (*Result, error) {
	cfg := t.setup.Cfg
	train = dropUnknownRows(ctx, train, t.logg)
	if train.Rows() == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "no labeled rows to train on")
	}

	_, wideDim := train.Wide.Dims()
	_, deepDim := train.Deep.Dims()

	rng := rand.New(rand.NewSource(cfg.Seed))
	m, err := t.setup.NewModel(model.Config{
		WideDim:     wideDim,
		DeepDim:     deepDim,
		NumClasses:  numClasses,
		HiddenUnits: cfg.DeepHiddenUnits,
		DropoutP:    cfg.DropoutP,
		LayerNorm:   cfg.LayerNorm,
		// The loss applies softmax itself.
		Softmax: false,
	}, rng)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     uuid.NewString(),
		ModelKind: t.setup.ModelKind,
		BestLoss:  -1,
	}
	ctx = t.logg.WithRunID(ctx, result.RunID)

	startedAt := time.Now().UTC()
	evalRows := 0
	if eval != nil {
		evalRows = eval.Rows()
	}
	if err := t.sink.RecordRun(ctx, t.runRow(result, startedAt, train.Rows(), evalRows, numClasses, experiment.RunStatusRunning, nil)); err != nil {
		t.logg.Warn(ctx, fmt.Sprintf("recording run start failed: %v", err))
	}

	tracker := NewMetricTracker()
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			t.recordFinish(ctx, result, startedAt, train.Rows(), evalRows, numClasses, err)
			return nil, err
		}

		tracker.Reset()
		if err := t.runEpoch(ctx, m, train, rng, tracker); err != nil {
			t.recordFinish(ctx, result, startedAt, train.Rows(), evalRows, numClasses, err)
			return nil, err
		}
		t.setup.Scheduler.Step()

		epochLoss := tracker.Avg(lossMetric)
		epochAccuracy := tracker.Avg(string(enums.MetricAccuracy))
		if result.BestLoss < 0 || epochLoss < result.BestLoss {
			result.BestLoss = epochLoss
			result.BestLossEpoch = epoch
		}
		if epochAccuracy > result.BestAccuracy || result.BestAccuracyEpoch == 0 {
			result.BestAccuracy = epochAccuracy
			result.BestAccuracyEpoch = epoch
		}

		t.logg.Info(ctx, fmt.Sprintf("epoch %d/%d loss=%.4f accuracy=%.4f lr=%.6f", epoch, cfg.Epochs, epochLoss, epochAccuracy, t.setup.Optimizer.LR()))
		if err := t.sink.RecordEpoch(ctx, t.epochRow(result.RunID, epoch, tracker)); err != nil {
			t.logg.Warn(ctx, fmt.Sprintf("recording epoch metrics failed: %v", err))
		}

		if cfg.SavePeriod > 0 && epoch%cfg.SavePeriod == 0 && epoch != cfg.Epochs {
			if object, err := t.ckpt.Save(ctx, m, t.setup.ModelKind, epoch); err != nil {
				t.logg.Error(ctx, "periodic checkpoint failed", err)
			} else {
				result.FinalCheckpoint = object
			}
		}
		result.Epochs = epoch
	}

	if object, err := t.ckpt.Save(ctx, m, t.setup.ModelKind, cfg.Epochs); err != nil {
		t.logg.Error(ctx, "final checkpoint failed", err)
	} else {
		result.FinalCheckpoint = object
	}

	if eval != nil && eval.Rows() > 0 {
		result.EvalMetrics = t.evaluate(m, eval, numClasses)
		for _, name := range t.setup.MetricOrder {
			t.logg.Info(ctx, fmt.Sprintf("holdout %s=%.4f", name, result.EvalMetrics[name]))
		}
	}

	t.recordFinish(ctx, result, startedAt, train.Rows(), evalRows, numClasses, nil)
	return result, nil
}

func (t *Trainer) runEpoch(ctx context.Context, m model.Classifier, train *features.Encoded, rng *rand.Rand, tracker *MetricTracker) error {
	cfg := t.setup.Cfg
	n := train.Rows()

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if cfg.Shuffle {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	for start := 0; start < n; start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > n {
			end = n
		}
		idx := order[start:end]

		wide := takeRows(train.Wide, idx)
		deep := takeRows(train.Deep, idx)
		targets := make([]int, len(idx))
		for i, row := range idx {
			targets[i] = train.Labels[row]
		}

		logits := m.Forward(wide, deep, true)
		loss, dlogits, err := model.CrossEntropyWithLogits(logits, targets)
		if err != nil {
			return err
		}

		m.Backward(dlogits)
		params := m.Params()
		t.setup.Optimizer.Step(params)
		for _, p := range params {
			p.Grad.Zero()
		}

		preds := model.Argmax(logits)
		tracker.Update(lossMetric, loss, len(idx))
		numClasses := m.Config().NumClasses
		for name, fn := range t.setup.Metrics {
			tracker.Update(string(name), fn(preds, targets, numClasses), len(idx))
		}
	}
	return nil
}

func (t *Trainer) evaluate(m model.Classifier, eval *features.Encoded, numClasses int) map[enums.MetricName]float64 {
	logits := m.Forward(eval.Wide, eval.Deep, false)
	preds := model.Argmax(logits)

	out := make(map[enums.MetricName]float64, len(t.setup.Metrics))
	for name, fn := range t.setup.Metrics {
		out[name] = fn(preds, eval.Labels, numClasses)
	}
	return out
}

func (t *Trainer) runRow(result *Result, startedAt time.Time, trainRows, evalRows, numClasses int, status string, runErr error) experiment.RunRow {
	cfg := t.setup.Cfg
	row := experiment.RunRow{
		RunID:         result.RunID,
		ModelKind:     string(t.setup.ModelKind),
		OptimizerKind: cfg.OptimizerKind,
		Seed:          cfg.Seed,
		Epochs:        int64(cfg.Epochs),
		BatchSize:     int64(cfg.BatchSize),
		LearningRate:  cfg.LearningRate,
		NumClasses:    int64(numClasses),
		TrainRows:     int64(trainRows),
		HoldoutRows:   int64(evalRows),
		Status:        status,
		StartedAt:     startedAt,
	}
	if status != experiment.RunStatusRunning {
		row.FinishedAt = bigquery.NullTimestamp{Timestamp: time.Now().UTC(), Valid: true}
		row.BestLoss = experiment.NullFloat(result.BestLoss, result.BestLossEpoch > 0)
		row.BestAccuracy = experiment.NullFloat(result.BestAccuracy, result.BestAccuracyEpoch > 0)
		if result.FinalCheckpoint != "" {
			row.Checkpoint = bigquery.NullString{StringVal: result.FinalCheckpoint, Valid: true}
		}
	}
	if runErr != nil {
		row.Error = bigquery.NullString{StringVal: runErr.Error(), Valid: true}
	}
	return row
}

func (t *Trainer) recordFinish(ctx context.Context, result *Result, startedAt time.Time, trainRows, evalRows, numClasses int, runErr error) {
	status := experiment.RunStatusCompleted
	if runErr != nil {
		status = experiment.RunStatusFailed
	}
	if err := t.sink.Flush(ctx); err != nil {
		t.logg.Warn(ctx, fmt.Sprintf("flushing epoch metrics failed: %v", err))
	}
	if err := t.sink.RecordRun(ctx, t.runRow(result, startedAt, trainRows, evalRows, numClasses, status, runErr)); err != nil {
		t.logg.Warn(ctx, fmt.Sprintf("recording run finish failed: %v", err))
	}
}

func (t *Trainer) epochRow(runID string, epoch int, tracker *MetricTracker) experiment.EpochMetricRow {
	row := experiment.EpochMetricRow{
		RunID:        runID,
		Epoch:        int64(epoch),
		Loss:         tracker.Avg(lossMetric),
		LearningRate: t.setup.Optimizer.LR(),
		LoggedAt:     time.Now().UTC(),
	}
	row.Accuracy = experiment.NullFloat(tracker.Avg(string(enums.MetricAccuracy)), tracker.Has(string(enums.MetricAccuracy)))
	row.Precision = experiment.NullFloat(tracker.Avg(string(enums.MetricPrecision)), tracker.Has(string(enums.MetricPrecision)))
	row.Recall = experiment.NullFloat(tracker.Avg(string(enums.MetricRecall)), tracker.Has(string(enums.MetricRecall)))
	row.F1 = experiment.NullFloat(tracker.Avg(string(enums.MetricF1)), tracker.Has(string(enums.MetricF1)))
	return row
}

// dropUnknownRows filters rows whose label is the unknown sentinel; those
// rows cannot supervise training against the persisted vocabulary.
func dropUnknownRows(ctx context.Context, enc *features.Encoded, logg *logger.Logger) *features.Encoded {
	if enc.UnknownRows == 0 {
		return enc
	}

	var keep []int
	for i, label := range enc.Labels {
		if label != features.UnknownIndex {
			keep = append(keep, i)
		}
	}
	if logg != nil {
		logg.Warn(ctx, fmt.Sprintf("dropping %d rows with unknown category labels from training", enc.Rows()-len(keep)))
	}

	out := &features.Encoded{
		Wide:        takeRows(enc.Wide, keep),
		Deep:        takeRows(enc.Deep, keep),
		Labels:      make([]int, len(keep)),
		CustomerIDs: make([]uint, len(keep)),
	}
	for i, row := range keep {
		out.Labels[i] = enc.Labels[row]
		out.CustomerIDs[i] = enc.CustomerIDs[row]
	}
	return out
}

// takeRows gathers the given rows into a fresh matrix.
func takeRows(src *mat.Dense, idx []int) *mat.Dense {
	if len(idx) == 0 {
		return nil
	}
	_, cols := src.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for i, row := range idx {
		for j := 0; j < cols; j++ {
			out.Set(i, j, src.At(row, j))
		}
	}
	return out
}
