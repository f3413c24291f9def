package training

import (
	"math/rand"

	"github.com/shoppulse/recsys-backend/internal/model"
	"github.com/shoppulse/recsys-backend/pkg/config"
	"github.com/shoppulse/recsys-backend/pkg/enums"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
)

// ModelConstructor builds a classifier for the resolved kind.
type ModelConstructor func(cfg model.Config, rng *rand.Rand) (model.Classifier, error)

var modelRegistry = map[enums.ModelKind]ModelConstructor{
	enums.ModelKindWideAndDeep: func(cfg model.Config, rng *rand.Rand) (model.Classifier, error) {
		return model.NewWideAndDeep(cfg, rng)
	},
	enums.ModelKindMLP: func(cfg model.Config, rng *rand.Rand) (model.Classifier, error) {
		return model.NewMLP(cfg, rng)
	},
}

// NewModelForKind instantiates a registered architecture. Used by checkpoint
// restore as well as fresh training runs.
func NewModelForKind(kind enums.ModelKind, cfg model.Config, rng *rand.Rand) (model.Classifier, error) {
	ctor, ok := modelRegistry[kind]
	if !ok {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown model kind "+string(kind))
	}
	return ctor(cfg, rng)
}

// Setup is the fully resolved training configuration: every configured name
// has been checked against its registry, so nothing fails mid-run over a
// typo.
type Setup struct {
	Cfg         config.TrainingConfig
	ModelKind   enums.ModelKind
	NewModel    ModelConstructor
	Optimizer   Optimizer
	Scheduler   Scheduler
	MetricOrder []enums.MetricName
	Metrics     map[enums.MetricName]MetricFunc
}

// Resolve validates the training config against the registries, failing fast
// on any unknown kind or name.
func Resolve(cfg config.TrainingConfig) (*Setup, error) {
	if cfg.Epochs <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "epochs must be positive")
	}
	if cfg.BatchSize <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "batch size must be positive")
	}

	modelKind, err := enums.ParseModelKind(cfg.ModelKind)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "resolving model kind")
	}

	optimizerKind, err := enums.ParseOptimizerKind(cfg.OptimizerKind)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "resolving optimizer kind")
	}
	optimizer, err := NewOptimizer(optimizerKind, cfg.LearningRate)
	if err != nil {
		return nil, err
	}

	schedulerKind, err := enums.ParseSchedulerKind(cfg.SchedulerKind)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "resolving scheduler kind")
	}
	scheduler, err := NewScheduler(schedulerKind, optimizer, cfg.SchedulerStep, cfg.SchedulerGamma)
	if err != nil {
		return nil, err
	}

	order, metrics, err := ResolveMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Setup{
		Cfg:         cfg,
		ModelKind:   modelKind,
		NewModel:    modelRegistry[modelKind],
		Optimizer:   optimizer,
		Scheduler:   scheduler,
		MetricOrder: order,
		Metrics:     metrics,
	}, nil
}
