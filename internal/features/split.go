package features

import "gonum.org/v1/gonum/mat"

// Split carves the trailing holdout rows off as the evaluation slice. The
// holdout is positional, not random: the last rows of the batch are the most
// recent transactions. Batches smaller than the holdout train on everything
// and evaluate on nothing.
func Split(enc *Encoded, holdout int) (train, eval *Encoded) {
	n := enc.Rows()
	if holdout <= 0 || n <= holdout {
		return enc, nil
	}

	cut := n - holdout
	return slice(enc, 0, cut), slice(enc, cut, n)
}

func slice(enc *Encoded, from, to int) *Encoded {
	_, wideCols := enc.Wide.Dims()
	_, deepCols := enc.Deep.Dims()

	out := &Encoded{
		Wide:        mat.DenseCopyOf(enc.Wide.Slice(from, to, 0, wideCols)),
		Deep:        mat.DenseCopyOf(enc.Deep.Slice(from, to, 0, deepCols)),
		Labels:      append([]int(nil), enc.Labels[from:to]...),
		CustomerIDs: append([]uint(nil), enc.CustomerIDs[from:to]...),
	}
	for _, label := range out.Labels {
		if label == UnknownIndex {
			out.UnknownRows++
		}
	}
	return out
}
