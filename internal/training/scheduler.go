package training

import (
	"github.com/shoppulse/recsys-backend/pkg/enums"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
)

// Scheduler adjusts the optimizer learning rate. Step is called exactly once
// per epoch, after the epoch's batches.
type Scheduler interface {
	Step()
}

// NewScheduler resolves a scheduler kind at setup time.
func NewScheduler(kind enums.SchedulerKind, opt Optimizer, stepSize int, gamma float64) (Scheduler, error) {
	switch kind {
	case enums.SchedulerConstant:
		return constantScheduler{}, nil
	case enums.SchedulerStep:
		if stepSize <= 0 {
			return nil, apperrors.New(apperrors.CodeValidation, "scheduler step size must be positive")
		}
		if gamma <= 0 || gamma > 1 {
			return nil, apperrors.New(apperrors.CodeValidation, "scheduler gamma must be in (0, 1]")
		}
		return &stepScheduler{opt: opt, stepSize: stepSize, gamma: gamma}, nil
	default:
		return nil, apperrors.New(apperrors.CodeValidation, "unknown scheduler kind "+string(kind))
	}
}

type constantScheduler struct{}

func (constantScheduler) Step() {}

// stepScheduler decays the learning rate by gamma every stepSize epochs.
type stepScheduler struct {
	opt      Optimizer
	stepSize int
	gamma    float64
	epoch    int
}

func (s *stepScheduler) Step() {
	s.epoch++
	if s.epoch%s.stepSize == 0 {
		s.opt.SetLR(s.opt.LR() * s.gamma)
	}
}
