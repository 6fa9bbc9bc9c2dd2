package fdr

import (
	"fmt"
	"sort"
)

// NullModel estimates how much of a target population looks like the null
// (decoy) population.
type NullModel interface {
	// PValues assigns each target of pairs, which must be sorted most
	// significant first, an empirical p-value against the decoys. The
	// result is in ascending order.
	PValues(pairs []ScoreLabel) []float64
	// EstimatePi0 estimates the fraction of p-values drawn from a uniform
	// null. p must be sorted ascending.
	EstimatePi0(p []float64) (float64, error)
}

// EstimatePi0 pools targets and decoys, ranks them in direction dir and asks
// null for pi0. The slices are not modified. The estimate is clamped to [0,1].
func EstimatePi0(targets, decoys []float64, dir Direction, null NullModel) (float64, error) {
	pairs := Pairs(targets, decoys, dir)
	pi0, err := null.EstimatePi0(null.PValues(pairs))
	if err != nil {
		return 0, err
	}
	return clamp01(pi0), nil
}

// MixMax computes q-values with the mix-max procedure of Keich, Kertesz-Farkas
// and Noble (J. Proteome Res. 14(8), 2015). It needs the scores of a separate
// target and decoy search, one decoy per target. If pi0 is unset it is
// estimated with null.
//
// Both slices are sorted in place, most significant first, and qvalues[i]
// belongs to targets[i].
func MixMax(targets, decoys []float64, dir Direction, pi0 Pi0, null NullModel) ([]float64, error) {
	nT, nD := len(targets), len(decoys)
	if nT == 0 || nD == 0 {
		return nil, fmt.Errorf("%w (%d targets, %d decoys)", ErrEmptyPopulation, nT, nD)
	}
	if nT != nD {
		return nil, fmt.Errorf("%w: mix-max needs a separate target-decoy search with one decoy per target (%d targets, %d decoys)",
			ErrUnequalPopulations, nT, nD)
	}
	p0, ok := pi0.Value()
	if !ok {
		var err error
		p0, err = EstimatePi0(targets, decoys, dir, null)
		if err != nil {
			return nil, fmt.Errorf("mix-max: %w", err)
		}
	}

	sortPopulations(targets, decoys, dir)
	// From here on larger is better.
	w := canonical(targets, dir)
	z := canonical(decoys, dir)

	// Cumulative histogram over decoy boundaries. Bucket k counts the
	// targets (wLe) and decoys (zLe) no more extreme than the next more
	// extreme decoy z[k-1]. Bucket 0 holds the full populations.
	wLe := make([]float64, nD+1)
	zLe := make([]float64, nD+1)
	wLe[0] = float64(nT)
	zLe[0] = float64(nD)
	for k := 1; k <= nD; k++ {
		wLe[k] = float64(nT - countAbove(w, z[k-1]))
		zLe[k] = float64(nD - countAbove(z, z[k-1]))
	}

	qvalues := make([]float64, nT)
	var eF1 float64 // expected false targets among the mixture part
	nBeats := 0     // decoys at least as extreme as the current target
	nAbove := 0     // targets at least as extreme as the current target
	k, m := 0, 0
	prev := 0.0
	for i := 0; i < nT; i++ {
		for k < nD && z[k] >= w[i] {
			eF1 += mixtureMass(wLe[k], zLe[k], p0)
			nBeats++
			k++
		}
		for m < nT && w[m] >= w[i] {
			nAbove++
			m++
		}
		q := clamp01((float64(nBeats)*p0 + eF1) / float64(nAbove))
		if q < prev {
			q = prev
		}
		qvalues[i] = q
		prev = q
	}
	Correct(qvalues)
	return qvalues, nil
}

// mixtureMass is the estimated probability that a target beats the decoy
// at a boundary, weighted by the non-null fraction.
func mixtureMass(wLe, zLe, pi0 float64) float64 {
	if pi0 >= 1 {
		return 0
	}
	est := (wLe - pi0*zLe) / ((1 - pi0) * zLe)
	return clamp01(est) * (1 - pi0)
}

// canonical returns a copy of sorted scores with larger meaning better.
func canonical(sorted []float64, dir Direction) []float64 {
	out := make([]float64, len(sorted))
	for i, s := range sorted {
		if dir == Ascending {
			s = -s
		}
		out[i] = s
	}
	return out
}

// countAbove returns how many entries of desc, sorted descending, are
// strictly greater than x.
func countAbove(desc []float64, x float64) int {
	return sort.Search(len(desc), func(i int) bool { return desc[i] <= x })
}
