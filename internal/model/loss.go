package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
)

// CrossEntropyWithLogits computes mean softmax cross-entropy and the logit
// gradient in one pass. The model must emit raw logits (Softmax disabled);
// rows whose target is the unknown sentinel contribute nothing to loss or
// gradient.
func CrossEntropyWithLogits(logits *mat.Dense, targets []int) (float64, *mat.Dense, error) {
	n, classes := logits.Dims()
	if n != len(targets) {
		return 0, nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("logits have %d rows but %d targets given", n, len(targets)))
	}

	probs := Softmax(logits)
	dlogits := mat.NewDense(n, classes, nil)

	valid := 0
	loss := 0.0
	for i, target := range targets {
		if target < 0 {
			continue
		}
		if target >= classes {
			return 0, nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("target %d outside %d classes", target, classes))
		}
		valid++
		loss += -math.Log(math.Max(probs.At(i, target), 1e-12))
		for j := 0; j < classes; j++ {
			grad := probs.At(i, j)
			if j == target {
				grad -= 1
			}
			dlogits.Set(i, j, grad)
		}
	}

	if valid == 0 {
		return 0, nil, apperrors.New(apperrors.CodeValidation, "no valid targets in batch")
	}

	scale := 1.0 / float64(valid)
	loss *= scale
	dlogits.Scale(scale, dlogits)
	return loss, dlogits, nil
}
