// Package nullmodel estimates how a target score population relates to the
// null population given by decoys: empirical p-values, the null proportion
// pi0 and posterior error probabilities.
//
// All inputs are pooled (score, isTarget) lists that the caller has already
// sorted most significant first, so the estimator itself never needs to know
// the score direction.
package nullmodel

import (
	"errors"
	"math"
	"sort"

	"github.com/524D/mzconf/internal/fdr"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrDegenerateNull = errors.New("nullmodel: no valid pi0 estimate")
	ErrNoDecoys       = errors.New("nullmodel: no decoys to estimate PEP from")
)

// Maximum number of p-values drawn in one bootstrap sample
const maxBootSize = 1000

// Estimator holds the tuning of the pi0 bootstrap. Use New for the defaults.
type Estimator struct {
	NumLambda int     // number of lambda values tried
	MaxLambda float64 // largest lambda tried
	NumBoot   int     // bootstrap rounds
	Seed      uint64  // seed of the bootstrap random source
}

// New returns an Estimator with 100 lambdas over (0, 0.5] and 100 bootstrap
// rounds.
func New(seed uint64) *Estimator {
	return &Estimator{
		NumLambda: 100,
		MaxLambda: 0.5,
		NumBoot:   100,
		Seed:      seed,
	}
}

// PValues returns, for every target in pairs, the fraction of decoys that
// score at least as well. Decoys tied with a group of targets are spread
// evenly over that group. The result is sorted ascending.
func (e *Estimator) PValues(pairs []fdr.ScoreLabel) []float64 {
	p := make([]float64, 0, len(pairs))
	nDecoys := 0
	for i := 0; i < len(pairs); {
		j := i
		targets, decoys := 0, 0
		for j < len(pairs) && pairs[j].Score == pairs[i].Score {
			if pairs[j].Target {
				targets++
			} else {
				decoys++
			}
			j++
		}
		for k := 0; k < targets; k++ {
			p = append(p, float64(nDecoys)+float64(decoys*(k+1))/float64(targets+1))
		}
		nDecoys += decoys
		i = j
	}
	if nDecoys > 0 {
		floats.Scale(1/float64(nDecoys), p)
	}
	return p
}

// EstimatePi0 estimates the null proportion of the ascending p-values p with
// Storey's bootstrap method: for each lambda, pi0(lambda) = #{p >= lambda} /
// (n (1-lambda)); the lambda whose bootstrap estimates lie closest to the
// smallest pi0(lambda) wins. The result is clamped to [0,1].
func (e *Estimator) EstimatePi0(p []float64) (float64, error) {
	n := len(p)
	if n == 0 {
		return 0, ErrDegenerateNull
	}
	var lambdas, pi0s []float64
	for ix := 1; ix <= e.NumLambda; ix++ {
		lambda := float64(ix) / float64(e.NumLambda) * e.MaxLambda
		pi0 := tailFraction(p, lambda)
		if pi0 > 0 {
			lambdas = append(lambdas, lambda)
			pi0s = append(pi0s, pi0)
		}
	}
	if len(pi0s) == 0 {
		// No p-value above any lambda: every target beats the null.
		return 0, nil
	}
	minPi0 := floats.Min(pi0s)

	rng := rand.New(rand.NewSource(e.Seed))
	mse := make([]float64, len(lambdas))
	boot := make([]float64, minInt(n, maxBootSize))
	for b := 0; b < e.NumBoot; b++ {
		for i := range boot {
			boot[i] = p[rng.Intn(n)]
		}
		sort.Float64s(boot)
		for ix, lambda := range lambdas {
			d := tailFraction(boot, lambda) - minPi0
			mse[ix] += d * d
		}
	}
	pi0 := pi0s[floats.MinIdx(mse)]
	if math.IsNaN(pi0) {
		return 0, ErrDegenerateNull
	}
	return math.Max(math.Min(pi0, 1), 0), nil
}

// tailFraction is #{p >= lambda} / (n (1-lambda)) for ascending p.
func tailFraction(p []float64, lambda float64) float64 {
	start := sort.SearchFloat64s(p, lambda)
	return float64(len(p)-start) / float64(len(p)) / (1 - lambda)
}

// EstimatePEP fits a non-decreasing decoy probability d over pairs (sorted
// most significant first) and converts it into a PEP for every target:
// pi0 * (nTargets/nDecoys) * d/(1-d), capped at 1. The PEPs come back in
// pair order and never decrease.
func (e *Estimator) EstimatePEP(pairs []fdr.ScoreLabel, pi0 float64) ([]float64, error) {
	y := make([]float64, len(pairs))
	nTargets, nDecoys := 0, 0
	for i, pr := range pairs {
		if pr.Target {
			nTargets++
		} else {
			y[i] = 1
			nDecoys++
		}
	}
	if nDecoys == 0 {
		return nil, ErrNoDecoys
	}
	fit := isotonic(y)
	factor := pi0 * float64(nTargets) / float64(nDecoys)

	peps := make([]float64, 0, nTargets)
	prev := 0.0
	for i, pr := range pairs {
		if !pr.Target {
			continue
		}
		pep := 1.0
		if d := fit[i]; d < 1 {
			pep = math.Min(1, factor*d/(1-d))
		}
		if pep < prev {
			pep = prev
		}
		peps = append(peps, pep)
		prev = pep
	}
	return peps, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
