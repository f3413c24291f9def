// Package model implements the wide-and-deep classifier with explicit
// forward and backward passes over gonum matrices. Layers cache whatever the
// backward pass needs, so a Backward call is only valid after the matching
// Forward with train=true.
package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const layerNormEps = 1e-5

// Param is one trainable tensor with its accumulated gradient. Optimizers
// update Value in place and zero Grad between steps.
type Param struct {
	Value *mat.Dense
	Grad  *mat.Dense
}

// Layer is a differentiable transform in the deep stack.
type Layer interface {
	Forward(x *mat.Dense, train bool) *mat.Dense
	Backward(dout *mat.Dense) *mat.Dense
	Params() []*Param
}

// Linear is a fully connected layer: y = xW + b.
type Linear struct {
	w *Param // (in, out)
	b *Param // (1, out)

	in, out int
	x       *mat.Dense
}

// NewLinear initializes weights uniformly in ±1/sqrt(in).
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	bound := 1.0 / math.Sqrt(float64(in))
	w := mat.NewDense(in, out, nil)
	for i := 0; i < in; i++ {
		for j := 0; j < out; j++ {
			w.Set(i, j, (rng.Float64()*2-1)*bound)
		}
	}
	b := mat.NewDense(1, out, nil)
	for j := 0; j < out; j++ {
		b.Set(0, j, (rng.Float64()*2-1)*bound)
	}

	return &Linear{
		w:   &Param{Value: w, Grad: mat.NewDense(in, out, nil)},
		b:   &Param{Value: b, Grad: mat.NewDense(1, out, nil)},
		in:  in,
		out: out,
	}
}

func (l *Linear) Forward(x *mat.Dense, train bool) *mat.Dense {
	if train {
		l.x = x
	} else {
		l.x = nil
	}

	n, _ := x.Dims()
	y := mat.NewDense(n, l.out, nil)
	y.Mul(x, l.w.Value)
	for i := 0; i < n; i++ {
		for j := 0; j < l.out; j++ {
			y.Set(i, j, y.At(i, j)+l.b.Value.At(0, j))
		}
	}
	return y
}

func (l *Linear) Backward(dout *mat.Dense) *mat.Dense {
	n, _ := dout.Dims()

	var dw mat.Dense
	dw.Mul(l.x.T(), dout)
	l.w.Grad.Add(l.w.Grad, &dw)

	for j := 0; j < l.out; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += dout.At(i, j)
		}
		l.b.Grad.Set(0, j, l.b.Grad.At(0, j)+sum)
	}

	dx := mat.NewDense(n, l.in, nil)
	dx.Mul(dout, l.w.Value.T())
	return dx
}

func (l *Linear) Params() []*Param {
	return []*Param{l.w, l.b}
}

// ReLU zeroes negative activations.
type ReLU struct {
	mask *mat.Dense
}

func NewReLU() *ReLU { return &ReLU{} }

func (r *ReLU) Forward(x *mat.Dense, train bool) *mat.Dense {
	n, d := x.Dims()
	y := mat.NewDense(n, d, nil)
	mask := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			if v := x.At(i, j); v > 0 {
				y.Set(i, j, v)
				mask.Set(i, j, 1)
			}
		}
	}
	if train {
		r.mask = mask
	}
	return y
}

func (r *ReLU) Backward(dout *mat.Dense) *mat.Dense {
	n, d := dout.Dims()
	dx := mat.NewDense(n, d, nil)
	dx.MulElem(dout, r.mask)
	return dx
}

func (r *ReLU) Params() []*Param { return nil }

// LayerNorm normalizes each sample over its feature dimension with learned
// gain and bias. Normalization is per row, so single-sample batches are fine
// as long as they arrive shaped (1, features).
type LayerNorm struct {
	gamma *Param // (1, d)
	beta  *Param // (1, d)

	d      int
	xhat   *mat.Dense
	invStd []float64
}

func NewLayerNorm(d int) *LayerNorm {
	gamma := mat.NewDense(1, d, nil)
	for j := 0; j < d; j++ {
		gamma.Set(0, j, 1)
	}
	return &LayerNorm{
		gamma: &Param{Value: gamma, Grad: mat.NewDense(1, d, nil)},
		beta:  &Param{Value: mat.NewDense(1, d, nil), Grad: mat.NewDense(1, d, nil)},
		d:     d,
	}
}

func (l *LayerNorm) Forward(x *mat.Dense, train bool) *mat.Dense {
	n, d := x.Dims()
	y := mat.NewDense(n, d, nil)
	xhat := mat.NewDense(n, d, nil)
	invStd := make([]float64, n)

	for i := 0; i < n; i++ {
		mean := 0.0
		for j := 0; j < d; j++ {
			mean += x.At(i, j)
		}
		mean /= float64(d)

		variance := 0.0
		for j := 0; j < d; j++ {
			diff := x.At(i, j) - mean
			variance += diff * diff
		}
		variance /= float64(d)

		inv := 1.0 / math.Sqrt(variance+layerNormEps)
		invStd[i] = inv
		for j := 0; j < d; j++ {
			h := (x.At(i, j) - mean) * inv
			xhat.Set(i, j, h)
			y.Set(i, j, h*l.gamma.Value.At(0, j)+l.beta.Value.At(0, j))
		}
	}

	if train {
		l.xhat = xhat
		l.invStd = invStd
	}
	return y
}

func (l *LayerNorm) Backward(dout *mat.Dense) *mat.Dense {
	n, d := dout.Dims()
	dx := mat.NewDense(n, d, nil)

	for i := 0; i < n; i++ {
		sumDxhat := 0.0
		sumDxhatXhat := 0.0
		for j := 0; j < d; j++ {
			dxhat := dout.At(i, j) * l.gamma.Value.At(0, j)
			sumDxhat += dxhat
			sumDxhatXhat += dxhat * l.xhat.At(i, j)

			l.gamma.Grad.Set(0, j, l.gamma.Grad.At(0, j)+dout.At(i, j)*l.xhat.At(i, j))
			l.beta.Grad.Set(0, j, l.beta.Grad.At(0, j)+dout.At(i, j))
		}
		for j := 0; j < d; j++ {
			dxhat := dout.At(i, j) * l.gamma.Value.At(0, j)
			dx.Set(i, j, (l.invStd[i]/float64(d))*(float64(d)*dxhat-sumDxhat-l.xhat.At(i, j)*sumDxhatXhat))
		}
	}
	return dx
}

func (l *LayerNorm) Params() []*Param {
	return []*Param{l.gamma, l.beta}
}

// Dropout zeroes activations with probability p during training and rescales
// the survivors; evaluation passes through untouched.
type Dropout struct {
	p    float64
	rng  *rand.Rand
	mask *mat.Dense
}

func NewDropout(p float64, rng *rand.Rand) *Dropout {
	return &Dropout{p: p, rng: rng}
}

func (d *Dropout) Forward(x *mat.Dense, train bool) *mat.Dense {
	if !train || d.p <= 0 {
		d.mask = nil
		return x
	}

	n, cols := x.Dims()
	keep := 1.0 - d.p
	mask := mat.NewDense(n, cols, nil)
	y := mat.NewDense(n, cols, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < cols; j++ {
			if d.rng.Float64() < keep {
				mask.Set(i, j, 1.0/keep)
				y.Set(i, j, x.At(i, j)/keep)
			}
		}
	}
	d.mask = mask
	return y
}

func (d *Dropout) Backward(dout *mat.Dense) *mat.Dense {
	if d.mask == nil {
		return dout
	}
	n, cols := dout.Dims()
	dx := mat.NewDense(n, cols, nil)
	dx.MulElem(dout, d.mask)
	return dx
}

func (d *Dropout) Params() []*Param { return nil }
