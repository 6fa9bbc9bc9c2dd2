package fdr

import "fmt"

// Table maps a target score to its q-value.
//
// Keys are raw scores, so targets with exactly the same score share an
// entry. That is safe because tied targets always receive the same q-value.
type Table map[float64]float64

// NewTable builds a Table from the parallel slices returned by TDC or MixMax.
func NewTable(scores, qvalues []float64) (Table, error) {
	if len(scores) != len(qvalues) {
		return nil, fmt.Errorf("%w (%d scores, %d q-values)",
			ErrLengthMismatch, len(scores), len(qvalues))
	}
	t := make(Table, len(scores))
	for i, s := range scores {
		t[s] = qvalues[i]
	}
	return t, nil
}

// Lookup returns the q-value for score.
func (t Table) Lookup(score float64) (float64, bool) {
	q, ok := t[score]
	return q, ok
}

// CountBelow returns how many of qvalues are strictly below threshold.
func CountBelow(qvalues []float64, threshold float64) int {
	n := 0
	for _, q := range qvalues {
		if q < threshold {
			n++
		}
	}
	return n
}
