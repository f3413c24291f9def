package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
)

// Config describes a classifier instance. WideDim/DeepDim come from the
// feature schema, NumClasses from the persisted label encoder.
type Config struct {
	WideDim     int
	DeepDim     int
	NumClasses  int
	HiddenUnits []int
	DropoutP    float64
	LayerNorm   bool
	Softmax     bool
}

func (c Config) validate() error {
	if c.WideDim <= 0 || c.DeepDim <= 0 {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid feature dims wide=%d deep=%d", c.WideDim, c.DeepDim))
	}
	if c.NumClasses < 2 {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("need at least 2 classes, got %d", c.NumClasses))
	}
	for _, h := range c.HiddenUnits {
		if h <= 0 {
			return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid hidden unit count %d", h))
		}
	}
	if c.DropoutP < 0 || c.DropoutP >= 1 {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("dropout probability %v outside [0, 1)", c.DropoutP))
	}
	return nil
}

// Classifier is the model surface the trainer and inference share.
type Classifier interface {
	Forward(wide, deep mat.Matrix, train bool) *mat.Dense
	Backward(dlogits *mat.Dense)
	Params() []*Param
	Config() Config
}

// WideAndDeep sums a single linear wide branch with a deep MLP branch over
// the class logits.
type WideAndDeep struct {
	cfg  Config
	wide *Linear
	deep []Layer
}

// NewWideAndDeep builds the model with weights initialized from rng.
func NewWideAndDeep(cfg Config, rng *rand.Rand) (*WideAndDeep, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &WideAndDeep{
		cfg:  cfg,
		wide: NewLinear(cfg.WideDim, cfg.NumClasses, rng),
		deep: deepStack(cfg.DeepDim, cfg, rng),
	}
	return m, nil
}

// deepStack builds [Linear, ReLU, LayerNorm?, Dropout?] per hidden width and
// a final projection to the class count.
func deepStack(inputDim int, cfg Config, rng *rand.Rand) []Layer {
	var layers []Layer
	in := inputDim
	for _, h := range cfg.HiddenUnits {
		layers = append(layers, NewLinear(in, h, rng), NewReLU())
		if cfg.LayerNorm {
			layers = append(layers, NewLayerNorm(h))
		}
		if cfg.DropoutP > 0 {
			layers = append(layers, NewDropout(cfg.DropoutP, rng))
		}
		in = h
	}
	layers = append(layers, NewLinear(in, cfg.NumClasses, rng))
	return layers
}

// Forward returns (batch, classes) scores: raw logits, or probabilities when
// the config enables softmax. Vector inputs are reshaped to one-row batches
// before any normalization sees them.
func (m *WideAndDeep) Forward(wide, deep mat.Matrix, train bool) *mat.Dense {
	wideBatch := asBatch(wide)
	deepBatch := asBatch(deep)

	logits := m.wide.Forward(wideBatch, train)

	deepOut := deepBatch
	for _, layer := range m.deep {
		deepOut = layer.Forward(deepOut, train)
	}

	logits.Add(logits, deepOut)
	if m.cfg.Softmax {
		return Softmax(logits)
	}
	return logits
}

// Backward propagates the logit gradient through both branches, accumulating
// parameter gradients.
func (m *WideAndDeep) Backward(dlogits *mat.Dense) {
	m.wide.Backward(dlogits)

	grad := dlogits
	for i := len(m.deep) - 1; i >= 0; i-- {
		grad = m.deep[i].Backward(grad)
	}
}

func (m *WideAndDeep) Params() []*Param {
	params := m.wide.Params()
	for _, layer := range m.deep {
		params = append(params, layer.Params()...)
	}
	return params
}

func (m *WideAndDeep) Config() Config {
	return m.cfg
}

// MLP is the deep branch alone over the concatenated feature vector, kept as
// a cheap baseline against the full model.
type MLP struct {
	cfg    Config
	layers []Layer
}

func NewMLP(cfg Config, rng *rand.Rand) (*MLP, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &MLP{
		cfg:    cfg,
		layers: deepStack(cfg.WideDim+cfg.DeepDim, cfg, rng),
	}, nil
}

func (m *MLP) Forward(wide, deep mat.Matrix, train bool) *mat.Dense {
	wideBatch := asBatch(wide)
	deepBatch := asBatch(deep)

	n, wc := wideBatch.Dims()
	_, dc := deepBatch.Dims()
	joined := mat.NewDense(n, wc+dc, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < wc; j++ {
			joined.Set(i, j, wideBatch.At(i, j))
		}
		for j := 0; j < dc; j++ {
			joined.Set(i, wc+j, deepBatch.At(i, j))
		}
	}

	out := joined
	for _, layer := range m.layers {
		out = layer.Forward(out, train)
	}
	if m.cfg.Softmax {
		return Softmax(out)
	}
	return out
}

func (m *MLP) Backward(dlogits *mat.Dense) {
	grad := dlogits
	for i := len(m.layers) - 1; i >= 0; i-- {
		grad = m.layers[i].Backward(grad)
	}
}

func (m *MLP) Params() []*Param {
	var params []*Param
	for _, layer := range m.layers {
		params = append(params, layer.Params()...)
	}
	return params
}

func (m *MLP) Config() Config {
	return m.cfg
}

// Softmax converts logits to row-wise probabilities, shifted by the row max
// for numeric stability.
func Softmax(logits *mat.Dense) *mat.Dense {
	n, d := logits.Dims()
	out := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		maxVal := logits.At(i, 0)
		for j := 1; j < d; j++ {
			if v := logits.At(i, j); v > maxVal {
				maxVal = v
			}
		}
		sum := 0.0
		for j := 0; j < d; j++ {
			e := math.Exp(logits.At(i, j) - maxVal)
			out.Set(i, j, e)
			sum += e
		}
		for j := 0; j < d; j++ {
			out.Set(i, j, out.At(i, j)/sum)
		}
	}
	return out
}

// Argmax returns the highest-scoring class per row.
func Argmax(scores *mat.Dense) []int {
	n, d := scores.Dims()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		best := 0
		for j := 1; j < d; j++ {
			if scores.At(i, j) > scores.At(i, best) {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// asBatch reshapes vector inputs into a single-row batch so per-row
// normalization always sees a 2-D shape.
func asBatch(m mat.Matrix) *mat.Dense {
	if dense, ok := m.(*mat.Dense); ok {
		return dense
	}
	if vec, ok := m.(mat.Vector); ok {
		row := mat.NewDense(1, vec.Len(), nil)
		for j := 0; j < vec.Len(); j++ {
			row.Set(0, j, vec.AtVec(j))
		}
		return row
	}
	return mat.DenseCopyOf(m)
}
