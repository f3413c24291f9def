package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/shoppulse/recsys-backend/internal/model"
	"github.com/shoppulse/recsys-backend/pkg/config"
	"github.com/shoppulse/recsys-backend/pkg/enums"
)

func singleParam(value, grad float64) []*model.Param {
	return []*model.Param{{
		Value: mat.NewDense(1, 1, []float64{value}),
		Grad:  mat.NewDense(1, 1, []float64{grad}),
	}}
}

func TestSGDStep(t *testing.T) {
	t.Parallel()

	opt, err := NewOptimizer(enums.OptimizerSGD, 0.1)
	require.NoError(t, err)

	params := singleParam(1.0, 2.0)
	opt.Step(params)
	assert.InDelta(t, 0.8, params[0].Value.At(0, 0), 1e-9)
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	t.Parallel()

	opt, err := NewOptimizer(enums.OptimizerAdam, 0.1)
	require.NoError(t, err)

	// Minimize (x-3)^2; gradient is 2(x-3).
	params := singleParam(0, 0)
	for i := 0; i < 300; i++ {
		x := params[0].Value.At(0, 0)
		params[0].Grad.Set(0, 0, 2*(x-3))
		opt.Step(params)
		params[0].Grad.Zero()
	}
	assert.InDelta(t, 3.0, params[0].Value.At(0, 0), 0.05)
}

func TestOptimizerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewOptimizer(enums.OptimizerSGD, 0)
	require.Error(t, err)

	_, err = NewOptimizer(enums.OptimizerKind("rmsprop"), 0.1)
	require.Error(t, err)
}

func TestStepSchedulerDecaysOncePerInterval(t *testing.T) {
	t.Parallel()

	opt, err := NewOptimizer(enums.OptimizerSGD, 1.0)
	require.NoError(t, err)

	sched, err := NewScheduler(enums.SchedulerStep, opt, 2, 0.5)
	require.NoError(t, err)

	sched.Step()
	assert.InDelta(t, 1.0, opt.LR(), 1e-9)
	sched.Step()
	assert.InDelta(t, 0.5, opt.LR(), 1e-9)
	sched.Step()
	assert.InDelta(t, 0.5, opt.LR(), 1e-9)
	sched.Step()
	assert.InDelta(t, 0.25, opt.LR(), 1e-9)
}

func TestSchedulerValidation(t *testing.T) {
	t.Parallel()

	opt, err := NewOptimizer(enums.OptimizerSGD, 1.0)
	require.NoError(t, err)

	_, err = NewScheduler(enums.SchedulerStep, opt, 0, 0.5)
	require.Error(t, err)

	_, err = NewScheduler(enums.SchedulerStep, opt, 2, 1.5)
	require.Error(t, err)

	_, err = NewScheduler(enums.SchedulerKind("cosine"), opt, 2, 0.5)
	require.Error(t, err)
}

func TestResolveFailsFastOnUnknownKinds(t *testing.T) {
	t.Parallel()

	base := config.TrainingConfig{
		Epochs:         1,
		BatchSize:      4,
		LearningRate:   0.01,
		ModelKind:      "wide_and_deep",
		OptimizerKind:  "adam",
		SchedulerKind:  "step",
		SchedulerStep:  2,
		SchedulerGamma: 0.5,
		Metrics:        []string{"accuracy"},
	}

	_, err := Resolve(base)
	require.NoError(t, err)

	bad := base
	bad.ModelKind = "transformer"
	_, err = Resolve(bad)
	require.Error(t, err)

	bad = base
	bad.OptimizerKind = "rmsprop"
	_, err = Resolve(bad)
	require.Error(t, err)

	bad = base
	bad.SchedulerKind = "cosine"
	_, err = Resolve(bad)
	require.Error(t, err)

	bad = base
	bad.Metrics = []string{"auc"}
	_, err = Resolve(bad)
	require.Error(t, err)

	bad = base
	bad.Epochs = 0
	_, err = Resolve(bad)
	require.Error(t, err)
}
