package training

// MetricTracker keeps weighted running averages within one epoch. Batch
// updates are weighted by batch size so uneven final batches do not skew the
// epoch average.
type MetricTracker struct {
	totals map[string]float64
	counts map[string]float64
}

func NewMetricTracker() *MetricTracker {
	return &MetricTracker{
		totals: map[string]float64{},
		counts: map[string]float64{},
	}
}

// Update folds a batch value into the running average.
func (t *MetricTracker) Update(name string, value float64, weight int) {
	if weight <= 0 {
		return
	}
	t.totals[name] += value * float64(weight)
	t.counts[name] += float64(weight)
}

// Avg returns the running average, zero if the metric was never updated.
func (t *MetricTracker) Avg(name string) float64 {
	if t.counts[name] == 0 {
		return 0
	}
	return t.totals[name] / t.counts[name]
}

// Has reports whether any update arrived for the metric this epoch.
func (t *MetricTracker) Has(name string) bool {
	return t.counts[name] > 0
}

// Reset clears all running state for the next epoch.
func (t *MetricTracker) Reset() {
	t.totals = map[string]float64{}
	t.counts = map[string]float64{}
}
