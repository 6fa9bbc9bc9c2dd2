package fdr

import (
	"fmt"
	"math"
	"sort"
)

// PEPEstimator turns a pooled score list into posterior error probabilities.
type PEPEstimator interface {
	EstimatePi0(p []float64) (float64, error)
	// EstimatePEP returns one PEP per target of pairs, in pair order.
	// pairs must be sorted most significant first.
	EstimatePEP(pairs []ScoreLabel, pi0 float64) ([]float64, error)
}

// ComputePEP converts p-values, given as -ln(p), into posterior error
// probabilities. The observed p-values are matched against the same number
// of evenly spaced uniform null p-values.
//
// The result is aligned with the p-values sorted ascending, not with the
// input order.
func ComputePEP(negLogP []float64, est PEPEstimator) ([]float64, error) {
	n := len(negLogP)
	if n == 0 {
		return nil, fmt.Errorf("%w (0 p-values)", ErrEmptyPopulation)
	}
	p := make([]float64, n)
	for i, x := range negLogP {
		p[i] = math.Exp(-x)
	}
	sort.Float64s(p)

	step := 1.0 / (2.0 * float64(n))
	pairs := make([]ScoreLabel, 0, 2*n)
	for _, v := range p {
		pairs = append(pairs, ScoreLabel{Score: v, Target: true})
	}
	for k := 0; k < n; k++ {
		pairs = append(pairs, ScoreLabel{Score: step * float64(1+2*k), Target: false})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return Ascending.Better(pairs[i].Score, pairs[j].Score)
	})

	pi0, err := est.EstimatePi0(p)
	if err != nil {
		return nil, err
	}
	return est.EstimatePEP(pairs, clamp01(pi0))
}
