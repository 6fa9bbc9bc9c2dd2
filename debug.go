// This file contains code to help debugging, and is
// separated in from the rest in order not to litter
// the main code with debugging stuff

package main

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/524D/mzconf/internal/psm"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var debugScans string  // Print debug output for given scan range
var debugQValue string // Print debug output for given q-value range

// Extra information in the JSON summary when MZCONF_DEBUG=1
type debugInfo struct {
	TargetScoreRange [2]float64
	DecoyScoreRange  [2]float64
	QValueQuantiles  map[string]float64
	MeanPEP          float64
}

var debugQuantiles = []float64{0.1, 0.25, 0.5, 0.75, 0.9}

func newDebugInfo(targets, decoys *psm.Collection, t psm.ScoreType) *debugInfo {
	var d debugInfo
	if ts := targets.Scores(t); len(ts) > 0 {
		d.TargetScoreRange = [2]float64{floats.Min(ts), floats.Max(ts)}
	}
	if ds := decoys.Scores(t); len(ds) > 0 {
		d.DecoyScoreRange = [2]float64{floats.Min(ds), floats.Max(ds)}
	}
	q := make([]float64, 0, targets.Len())
	pep := make([]float64, 0, targets.Len())
	for _, m := range targets.Matches {
		q = append(q, m.QValue)
		pep = append(pep, m.PEP)
	}
	if len(q) == 0 {
		return &d
	}
	sort.Float64s(q)
	d.QValueQuantiles = make(map[string]float64, len(debugQuantiles))
	for _, p := range debugQuantiles {
		d.QValueQuantiles[strconv.FormatFloat(p, 'f', -1, 64)] = stat.Quantile(p, stat.Empirical, q, nil)
	}
	d.MeanPEP = stat.Mean(pep, nil)
	return &d
}

// debugLogMatches prints the target matches whose scan and q-value fall in
// the debug ranges
func debugLogMatches(targets *psm.Collection, t psm.ScoreType) {
	if debugScans == `` && debugQValue == `` {
		return
	}
	scanMin, scanMax, err := parseIntRange(debugScans, 0, math.MaxInt32)
	if err != nil {
		fmt.Printf("Invalid debug scan range %q: %v\n", debugScans, err)
		return
	}
	qMin, qMax, err := parseFloat64Range(debugQValue, 0, 1)
	if err != nil {
		fmt.Printf("Invalid debug q-value range %q: %v\n", debugQValue, err)
		return
	}
	for _, m := range targets.Matches {
		if m.Scan < scanMin || m.Scan > scanMax || m.QValue < qMin || m.QValue > qMax {
			continue
		}
		score, _ := m.Score(t)
		best := `-`
		if m.BestPerPeptide {
			best = `+`
		}
		fmt.Printf("%s scan:%d charge:%d %s score:%g q:%g pep:%g best: %s\n",
			m.File, m.Scan, m.Charge, m.Sequence, score, m.QValue, m.PEP, best)
	}
}
