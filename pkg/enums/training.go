package enums

import "fmt"

// OptimizerKind names a parameter-update rule in the optimizer registry.
type OptimizerKind string

const (
	OptimizerSGD  OptimizerKind = "sgd"
	OptimizerAdam OptimizerKind = "adam"
)

var validOptimizerKinds = []OptimizerKind{OptimizerSGD, OptimizerAdam}

func (k OptimizerKind) String() string { return string(k) }

func ParseOptimizerKind(value string) (OptimizerKind, error) {
	for _, candidate := range validOptimizerKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid optimizer kind %q", value)
}

// SchedulerKind names a learning-rate schedule in the scheduler registry.
type SchedulerKind string

const (
	SchedulerStep     SchedulerKind = "step"
	SchedulerConstant SchedulerKind = "constant"
)

var validSchedulerKinds = []SchedulerKind{SchedulerStep, SchedulerConstant}

func (k SchedulerKind) String() string { return string(k) }

func ParseSchedulerKind(value string) (SchedulerKind, error) {
	for _, candidate := range validSchedulerKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scheduler kind %q", value)
}

// MetricName names an evaluation metric in the metric registry.
type MetricName string

const (
	MetricAccuracy  MetricName = "accuracy"
	MetricPrecision MetricName = "precision"
	MetricRecall    MetricName = "recall"
	MetricF1        MetricName = "f1"
)

var validMetricNames = []MetricName{
	MetricAccuracy,
	MetricPrecision,
	MetricRecall,
	MetricF1,
}

func (m MetricName) String() string { return string(m) }

func ParseMetricName(value string) (MetricName, error) {
	for _, candidate := range validMetricNames {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid metric name %q", value)
}
