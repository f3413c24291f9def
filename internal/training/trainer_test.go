package training

import (
	"context"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/shoppulse/recsys-backend/internal/features"
	"github.com/shoppulse/recsys-backend/internal/model"
	"github.com/shoppulse/recsys-backend/pkg/config"
	"github.com/shoppulse/recsys-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "trainer-test", Output: io.Discard})
}

func trainerConfig() config.TrainingConfig {
	return config.TrainingConfig{
		Seed:            7,
		Epochs:          3,
		BatchSize:       4,
		Shuffle:         true,
		LearningRate:    0.05,
		ModelKind:       "wide_and_deep",
		OptimizerKind:   "sgd",
		SchedulerKind:   "step",
		SchedulerStep:   2,
		SchedulerGamma:  0.5,
		Metrics:         []string{"accuracy", "precision", "recall", "f1"},
		DeepHiddenUnits: []int{8},
		LayerNorm:       true,
		SavePeriod:      2,
	}
}

// syntheticBatch builds a linearly separable two-class batch.
func syntheticBatch(t *testing.T, n int) *features.Encoded {
	t.Helper()

	rng := rand.New(rand.NewSource(99))
	wide := mat.NewDense(n, 3, nil)
	deep := mat.NewDense(n, 2, nil)
	labels := make([]int, n)
	customers := make([]uint, n)
	for i := 0; i < n; i++ {
		x := rng.NormFloat64()
		wide.Set(i, 0, x)
		wide.Set(i, 1, rng.NormFloat64())
		wide.Set(i, 2, rng.NormFloat64())
		deep.Set(i, 0, x)
		deep.Set(i, 1, rng.NormFloat64())
		if x > 0 {
			labels[i] = 1
		}
		customers[i] = uint(i + 1)
	}
	return &features.Encoded{Wide: wide, Deep: deep, Labels: labels, CustomerIDs: customers}
}

func newTestTrainer(t *testing.T, cfg config.TrainingConfig) (*Trainer, *CheckpointManager) {
	t.Helper()

	setup, err := Resolve(cfg)
	require.NoError(t, err)

	mgr := NewCheckpointManager(checkpointStore(t), "checkpoints/", nil)
	return NewTrainer(setup, mgr, nil, testLogger()), mgr
}

func TestTrainerRunProducesCheckpointAndBests(t *testing.T) {
	t.Parallel()

	trainer, mgr := newTestTrainer(t, trainerConfig())
	full := syntheticBatch(t, 24)
	train, eval := features.Split(full, 4)

	result, err := trainer.Run(context.Background(), train, eval, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Epochs)
	assert.NotEmpty(t, result.RunID)
	assert.Greater(t, result.BestLoss, 0.0)
	assert.GreaterOrEqual(t, result.BestLossEpoch, 1)
	assert.GreaterOrEqual(t, result.BestAccuracy, 0.0)
	assert.LessOrEqual(t, result.BestAccuracy, 1.0)
	require.NotEmpty(t, result.FinalCheckpoint)
	require.Contains(t, result.EvalMetrics, trainer.setup.MetricOrder[0])

	latest, err := mgr.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.FinalCheckpoint, latest)

	restored, err := mgr.Load(context.Background(), latest)
	require.NoError(t, err)
	assert.Equal(t, 2, restored.Config().NumClasses)
}

func TestTrainerIsSeedDeterministic(t *testing.T) {
	t.Parallel()

	probe := syntheticBatch(t, 4)

	var outputs []*mat.Dense
	for i := 0; i < 2; i++ {
		trainer, mgr := newTestTrainer(t, trainerConfig())
		train, eval := features.Split(syntheticBatch(t, 24), 4)

		_, err := trainer.Run(context.Background(), train, eval, 2)
		require.NoError(t, err)

		latest, err := mgr.Latest(context.Background())
		require.NoError(t, err)
		m, err := mgr.Load(context.Background(), latest)
		require.NoError(t, err)
		outputs = append(outputs, m.Forward(probe.Wide, probe.Deep, false))
	}

	assert.True(t, mat.EqualApprox(outputs[0], outputs[1], 1e-12))
}

func TestTrainerDropsUnknownLabelRows(t *testing.T) {
	t.Parallel()

	full := syntheticBatch(t, 12)
	full.Labels[0] = features.UnknownIndex
	full.UnknownRows = 1

	trainer, _ := newTestTrainer(t, trainerConfig())
	result, err := trainer.Run(context.Background(), full, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Epochs)
}

func TestTrainerRejectsAllUnknownBatch(t *testing.T) {
	t.Parallel()

	full := syntheticBatch(t, 4)
	for i := range full.Labels {
		full.Labels[i] = features.UnknownIndex
	}
	full.UnknownRows = len(full.Labels)

	trainer, _ := newTestTrainer(t, trainerConfig())
	_, err := trainer.Run(context.Background(), full, nil, 2)
	require.Error(t, err)
}

func TestTrainerLossImprovesOnSeparableData(t *testing.T) {
	t.Parallel()

	cfg := trainerConfig()
	cfg.Epochs = 15
	cfg.OptimizerKind = "adam"
	cfg.LearningRate = 0.01
	cfg.SchedulerKind = "constant"

	trainer, _ := newTestTrainer(t, cfg)
	train, _ := features.Split(syntheticBatch(t, 64), 0)

	result, err := trainer.Run(context.Background(), train, nil, 2)
	require.NoError(t, err)
	assert.Greater(t, result.BestAccuracy, 0.8)
	assert.Greater(t, result.BestLossEpoch, 1)
}

func TestNewModelForKindUnknown(t *testing.T) {
	t.Parallel()

	_, err := NewModelForKind("transformer", model.Config{WideDim: 1, DeepDim: 1, NumClasses: 2}, rand.New(rand.NewSource(1)))
	require.Error(t, err)
}
