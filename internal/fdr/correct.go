package fdr

// Correct converts FDR estimates into q-values in place. fdr must be ordered
// from most significant (index 0) to least significant. Afterwards each entry
// is the minimum of itself and every less significant entry, so the slice is
// non-decreasing. Running it twice changes nothing.
func Correct(fdr []float64) {
	if len(fdr) < 2 {
		return
	}
	prev := fdr[len(fdr)-1]
	for i := len(fdr) - 2; i >= 0; i-- {
		if fdr[i] > prev {
			fdr[i] = prev
		}
		prev = fdr[i]
	}
}
