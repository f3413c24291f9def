package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeSample(t *testing.T) *Encoded {
	t.Helper()

	enc, err := NewEncoder(targetEncoder(t), nil)
	require.NoError(t, err)
	out, err := enc.Encode(context.Background(), sampleRows())
	require.NoError(t, err)
	return out
}

func TestSplitHoldsOutTrailingRows(t *testing.T) {
	t.Parallel()

	full := encodeSample(t)
	train, eval := Split(full, 1)

	require.NotNil(t, eval)
	assert.Equal(t, 2, train.Rows())
	assert.Equal(t, 1, eval.Rows())

	// The holdout is the most recent row.
	assert.Equal(t, full.Labels[2], eval.Labels[0])
	assert.Equal(t, full.CustomerIDs[2], eval.CustomerIDs[0])
	assert.Equal(t, full.Wide.At(2, 0), eval.Wide.At(0, 0))
}

func TestSplitSmallBatchKeepsEverythingForTraining(t *testing.T) {
	t.Parallel()

	full := encodeSample(t)
	train, eval := Split(full, 100)

	assert.Nil(t, eval)
	assert.Equal(t, full.Rows(), train.Rows())
}

func TestSplitCountsUnknownRows(t *testing.T) {
	t.Parallel()

	full := encodeSample(t)
	full.Labels[2] = UnknownIndex

	train, eval := Split(full, 1)
	assert.Zero(t, train.UnknownRows)
	assert.Equal(t, 1, eval.UnknownRows)
}
