package fdr

import "fmt"

// TDC computes target-decoy competition q-values. Both slices are sorted in
// place, most significant first; qvalues[i] belongs to targets[i] after the
// call.
//
// At target rank i the FDR is the number of decoys strictly more extreme than
// the target, divided by i+1, capped at 1.
func TDC(targets, decoys []float64, dir Direction) ([]float64, error) {
	if len(targets) == 0 || len(decoys) == 0 {
		return nil, fmt.Errorf("%w (%d targets, %d decoys)",
			ErrEmptyPopulation, len(targets), len(decoys))
	}
	sortPopulations(targets, decoys, dir)

	qvalues := make([]float64, len(targets))
	d := 0 // decoys beating the current target; never moves back
	for i, t := range targets {
		for d < len(decoys) && dir.Better(decoys[d], t) {
			d++
		}
		fdr := float64(d) / float64(i+1)
		if fdr > 1.0 {
			fdr = 1.0
		}
		qvalues[i] = fdr
	}
	// Tied targets share d, so their raw FDR only drops with rank;
	// the correction gives them all the value of the last one.
	Correct(qvalues)
	return qvalues, nil
}
