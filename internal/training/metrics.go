// Package training drives the epoch loop: registries resolve configured
// kinds to implementations up front, the trainer owns the forward/backward
// cycle, and checkpoints plus experiment rows record what happened.
package training

import (
	"github.com/shoppulse/recsys-backend/pkg/enums"
	apperrors "github.com/shoppulse/recsys-backend/pkg/errors"
)

// MetricFunc scores predictions against integer targets. Rows with negative
// targets (unknown sentinel) are ignored.
type MetricFunc func(preds, targets []int, numClasses int) float64

// Accuracy is the fraction of correctly classified rows.
func Accuracy(preds, targets []int, _ int) float64 {
	correct, total := 0, 0
	for i := range targets {
		if targets[i] < 0 {
			continue
		}
		total++
		if preds[i] == targets[i] {
			correct++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// MacroPrecision averages per-class precision, counting empty classes as zero.
func MacroPrecision(preds, targets []int, numClasses int) float64 {
	tp, fp, _ := confusion(preds, targets, numClasses)
	sum := 0.0
	for c := 0; c < numClasses; c++ {
		if denom := tp[c] + fp[c]; denom > 0 {
			sum += float64(tp[c]) / float64(denom)
		}
	}
	if numClasses == 0 {
		return 0
	}
	return sum / float64(numClasses)
}

// MacroRecall averages per-class recall, counting empty classes as zero.
func MacroRecall(preds, targets []int, numClasses int) float64 {
	tp, _, fn := confusion(preds, targets, numClasses)
	sum := 0.0
	for c := 0; c < numClasses; c++ {
		if denom := tp[c] + fn[c]; denom > 0 {
			sum += float64(tp[c]) / float64(denom)
		}
	}
	if numClasses == 0 {
		return 0
	}
	return sum / float64(numClasses)
}

// MacroF1 averages per-class F1, treating zero denominators as zero.
func MacroF1(preds, targets []int, numClasses int) float64 {
	tp, fp, fn := confusion(preds, targets, numClasses)
	sum := 0.0
	for c := 0; c < numClasses; c++ {
		denom := 2*tp[c] + fp[c] + fn[c]
		if denom > 0 {
			sum += 2 * float64(tp[c]) / float64(denom)
		}
	}
	if numClasses == 0 {
		return 0
	}
	return sum / float64(numClasses)
}

func confusion(preds, targets []int, numClasses int) (tp, fp, fn []int) {
	tp = make([]int, numClasses)
	fp = make([]int, numClasses)
	fn = make([]int, numClasses)
	for i := range targets {
		target := targets[i]
		if target < 0 || target >= numClasses {
			continue
		}
		pred := preds[i]
		if pred == target {
			tp[target]++
			continue
		}
		fn[target]++
		if pred >= 0 && pred < numClasses {
			fp[pred]++
		}
	}
	return tp, fp, fn
}

var metricRegistry = map[enums.MetricName]MetricFunc{
	enums.MetricAccuracy:  Accuracy,
	enums.MetricPrecision: MacroPrecision,
	enums.MetricRecall:    MacroRecall,
	enums.MetricF1:        MacroF1,
}

// ResolveMetrics maps configured metric names to implementations, failing
// fast on unknown names. Order follows the configuration.
func ResolveMetrics(names []string) ([]enums.MetricName, map[enums.MetricName]MetricFunc, error) {
	if len(names) == 0 {
		return nil, nil, apperrors.New(apperrors.CodeValidation, "at least one metric must be configured")
	}

	ordered := make([]enums.MetricName, 0, len(names))
	resolved := make(map[enums.MetricName]MetricFunc, len(names))
	for _, raw := range names {
		name, err := enums.ParseMetricName(raw)
		if err != nil {
			return nil, nil, apperrors.Wrap(apperrors.CodeValidation, err, "resolving metric")
		}
		if _, dup := resolved[name]; dup {
			continue
		}
		ordered = append(ordered, name)
		resolved[name] = metricRegistry[name]
	}
	return ordered, resolved, nil
}
