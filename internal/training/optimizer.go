package training

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/shoppulse/recsys-backend/internal/model"
	"github.com/shoppulse/recsys-backend/pkg/enums"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
)

// Optimizer applies one update step to the model parameters. Gradients are
// zeroed by the caller after each step.
type Optimizer interface {
	Step(params []*model.Param)
	LR() float64
	SetLR(lr float64)
}

// NewOptimizer resolves an optimizer kind at setup time.
func NewOptimizer(kind enums.OptimizerKind, lr float64) (Optimizer, error) {
	if lr <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "learning rate must be positive")
	}
	switch kind {
	case enums.OptimizerSGD:
		return &sgd{lr: lr}, nil
	case enums.OptimizerAdam:
		return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8}, nil
	default:
		return nil, apperrors.New(apperrors.CodeValidation, "unknown optimizer kind "+string(kind))
	}
}

type sgd struct {
	lr float64
}

func (s *sgd) Step(params []*model.Param) {
	for _, p := range params {
		var scaled mat.Dense
		scaled.Scale(s.lr, p.Grad)
		p.Value.Sub(p.Value, &scaled)
	}
}

func (s *sgd) LR() float64      { return s.lr }
func (s *sgd) SetLR(lr float64) { s.lr = lr }

type adam struct {
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int
	mState []*mat.Dense
	vState []*mat.Dense
}

func (a *adam) Step(params []*model.Param) {
	if a.mState == nil {
		a.mState = make([]*mat.Dense, len(params))
		a.vState = make([]*mat.Dense, len(params))
		for i, p := range params {
			r, c := p.Value.Dims()
			a.mState[i] = mat.NewDense(r, c, nil)
			a.vState[i] = mat.NewDense(r, c, nil)
		}
	}

	a.t++
	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))

	for i, p := range params {
		r, c := p.Value.Dims()
		m, v := a.mState[i], a.vState[i]
		for row := 0; row < r; row++ {
			for col := 0; col < c; col++ {
				g := p.Grad.At(row, col)
				mNew := a.beta1*m.At(row, col) + (1-a.beta1)*g
				vNew := a.beta2*v.At(row, col) + (1-a.beta2)*g*g
				m.Set(row, col, mNew)
				v.Set(row, col, vNew)

				update := a.lr * (mNew / bc1) / (math.Sqrt(vNew/bc2) + a.eps)
				p.Value.Set(row, col, p.Value.At(row, col)-update)
			}
		}
	}
}

func (a *adam) LR() float64      { return a.lr }
func (a *adam) SetLR(lr float64) { a.lr = lr }
