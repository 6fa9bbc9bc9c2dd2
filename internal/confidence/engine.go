package confidence

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/524D/mzconf/internal/fdr"
	"github.com/524D/mzconf/internal/nullmodel"
	"github.com/524D/mzconf/internal/psm"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrUnknownMethod = errors.New("unknown estimation method")
	ErrNoScores      = errors.New("no matches carry the score")
)

// FDR levels reported in the summary
var fdrLevels = []float64{0.01, 0.05, 0.1}

// Options controls Assign.
type Options struct {
	Method    Method
	Score     psm.ScoreType
	Direction fdr.Direction
	// PEP enables posterior error probabilities. Estimator must be set.
	PEP       bool
	Estimator *nullmodel.Estimator
	// PeptideKey groups matches for the best per peptide flag. Nil skips it.
	PeptideKey psm.KeyFunc
}

// Level is the number of targets accepted at one FDR threshold.
type Level struct {
	FDR     float64 `json:"fdr"`
	Matches int     `json:"matches"`
}

// Summary describes one run of Assign.
type Summary struct {
	Method         string   `json:"method"`
	Score          string   `json:"score"`
	Direction      string   `json:"direction"`
	Targets        int      `json:"targets"`
	Decoys         int      `json:"decoys"`
	Pi0            *float64 `json:"pi0,omitempty"`
	Accepted       []Level  `json:"accepted"`
	ExpectedFalse  *float64 `json:"expectedFalseAt1Percent,omitempty"` // sum of PEPs below 1% FDR
	BestPerPeptide int      `json:"bestPerPeptide,omitempty"`
}

// Assign computes q-values for the scored targets from the scored decoys
// and stores them, and optionally PEPs and the best per peptide flag, in the
// target matches. Targets are left sorted by score, most significant first.
// Matches without the score get a q-value and PEP of 1.
func Assign(targets, decoys *psm.Collection, opt Options) (Summary, error) {
	sum := Summary{
		Method:    opt.Method.Name(),
		Score:     string(opt.Score),
		Direction: opt.Direction.String(),
	}
	scored := scoredMatches(targets, opt.Score)
	tScores := make([]float64, len(scored))
	for i, m := range scored {
		tScores[i], _ = m.Score(opt.Score)
	}
	dScores := decoys.Scores(opt.Score)
	if len(tScores) == 0 || len(dScores) == 0 {
		return sum, fmt.Errorf("%w %q (%d targets, %d decoys)",
			ErrNoScores, opt.Score, len(tScores), len(dScores))
	}
	sum.Targets, sum.Decoys = len(tScores), len(dScores)

	sorted := append([]float64(nil), tScores...)
	qvalues, err := opt.Method.QValues(sorted, append([]float64(nil), dScores...), opt.Direction)
	if err != nil {
		return sum, err
	}
	table, err := fdr.NewTable(sorted, qvalues)
	if err != nil {
		return sum, err
	}
	for _, m := range targets.Matches {
		m.QValue, m.PEP = 1, 1
	}
	for i, m := range scored {
		if q, ok := table.Lookup(tScores[i]); ok {
			m.QValue = q
		}
	}
	if pi0, ok := pi0Of(opt.Method); ok {
		sum.Pi0 = &pi0
	}
	for _, lvl := range fdrLevels {
		sum.Accepted = append(sum.Accepted, Level{FDR: lvl, Matches: fdr.CountBelow(qvalues, lvl)})
	}

	if opt.PEP {
		if opt.Estimator == nil {
			return sum, errors.New("PEP requested without estimator")
		}
		peps, err := targetPEPs(tScores, dScores, opt)
		if err != nil {
			return sum, fmt.Errorf("PEP: %w", err)
		}
		var expFalse []float64
		for i, m := range scored {
			m.PEP = peps[i]
			if m.QValue < fdrLevels[0] {
				expFalse = append(expFalse, peps[i])
			}
		}
		ef := floats.Sum(expFalse)
		sum.ExpectedFalse = &ef
	}

	if opt.PeptideKey != nil {
		sum.BestPerPeptide = psm.MarkBestPerPeptide(targets.Matches, opt.Score, opt.Direction, opt.PeptideKey)
	}
	targets.Sort(opt.Score, opt.Direction)
	return sum, nil
}

// scoredMatches returns the matches of c that carry score t, in order.
func scoredMatches(c *psm.Collection, t psm.ScoreType) []*psm.Match {
	var out []*psm.Match
	for _, m := range c.Matches {
		if _, ok := m.Score(t); ok {
			out = append(out, m)
		}
	}
	return out
}

// targetPEPs returns one PEP per entry of tScores, in input order.
// Calibrated p-values are compared with a uniform null; other scores with
// the decoys.
func targetPEPs(tScores, dScores []float64, opt Options) ([]float64, error) {
	est := opt.Estimator
	if opt.Score.IsPValue() {
		negLogP := make([]float64, len(tScores))
		for i, p := range tScores {
			negLogP[i] = -math.Log(p)
		}
		peps, err := fdr.ComputePEP(negLogP, est)
		if err != nil {
			return nil, err
		}
		return unpermute(peps, order(tScores, fdr.Ascending)), nil
	}

	pairs := fdr.Pairs(tScores, dScores, opt.Direction)
	pi0, ok := pi0Of(opt.Method)
	if !ok {
		var err error
		pi0, err = est.EstimatePi0(est.PValues(pairs))
		if err != nil {
			return nil, err
		}
	}
	peps, err := est.EstimatePEP(pairs, pi0)
	if err != nil {
		return nil, err
	}
	return unpermute(peps, order(tScores, opt.Direction)), nil
}

// order returns the indices of scores sorted most significant first,
// equal scores keeping their input order.
func order(scores []float64, dir fdr.Direction) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return dir.Better(scores[idx[a]], scores[idx[b]])
	})
	return idx
}

// unpermute places sorted[k] at position idx[k].
func unpermute(sorted []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[i] = sorted[k]
	}
	return out
}
