// Package fdr turns target and decoy scores into q-values.
//
// Every function takes the score direction explicitly. Slices are sorted in
// place, most significant first, and results are returned in that order.
package fdr

import (
	"sort"

	"golang.org/x/sync/errgroup"
)

// Direction tells which end of the score range is significant.
type Direction int

const (
	Descending Direction = iota // larger scores are better
	Ascending                   // smaller scores are better
)

func (d Direction) String() string {
	if d == Ascending {
		return "ascending"
	}
	return "descending"
}

// Better reports whether score a is strictly more extreme than score b.
func (d Direction) Better(a, b float64) bool {
	if d == Ascending {
		return a < b
	}
	return a > b
}

// Sort orders scores in place, most significant first.
func (d Direction) Sort(scores []float64) {
	if d == Ascending {
		sort.Float64s(scores)
		return
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
}

// sortPopulations sorts targets and decoys with the same comparator.
// The two sorts are independent, so they run concurrently.
func sortPopulations(targets, decoys []float64, dir Direction) {
	var g errgroup.Group
	g.Go(func() error {
		dir.Sort(targets)
		return nil
	})
	g.Go(func() error {
		dir.Sort(decoys)
		return nil
	})
	g.Wait()
}

// ScoreLabel is one entry of a pooled target/decoy score list.
type ScoreLabel struct {
	Score  float64
	Target bool
}

// Pairs pools targets and decoys into one list sorted most significant
// first. Equal scores keep their input order, targets before decoys.
func Pairs(targets, decoys []float64, dir Direction) []ScoreLabel {
	pairs := make([]ScoreLabel, 0, len(targets)+len(decoys))
	for _, s := range targets {
		pairs = append(pairs, ScoreLabel{Score: s, Target: true})
	}
	for _, s := range decoys {
		pairs = append(pairs, ScoreLabel{Score: s, Target: false})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return dir.Better(pairs[i].Score, pairs[j].Score)
	})
	return pairs
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
