package psm

import (
	"math"

	"github.com/524D/mzconf/internal/fdr"

	"golang.org/x/exp/rand"
)

// Score differences below tieTol count as ties
const tieTol = 1e-10

// CompetitionStats counts what happened during Compete.
type CompetitionStats struct {
	Competitions int // target-decoy pairs compared
	Ties         int // pairs broken at random
	LostDecoys   int // targets without a decoy partner
}

type spectrumKey struct {
	file   string
	scan   int
	charge int
	rank   int
}

func keyOf(m *Match) spectrumKey {
	return spectrumKey{file: m.File, scan: m.Scan, charge: m.Charge, rank: m.Rank}
}

// Partner is a target match with the decoy match of the same spectrum,
// file, charge and rank. Decoy is nil when the decoy search has no such
// match.
type Partner struct {
	Target *Match
	Decoy  *Match
}

// Partners pairs every target with its decoy from a separate search. The
// candidate counts of a pair are summed, since together they searched both
// databases. It also returns the number of targets without a decoy.
func Partners(targets, decoys *Collection) (partners []Partner, lostDecoys int) {
	pair := make(map[spectrumKey]*Match, len(decoys.Matches))
	for _, d := range decoys.Matches {
		k := keyOf(d)
		// On a tie between top ranked decoys the first one is kept
		if _, ok := pair[k]; !ok {
			pair[k] = d
		}
	}
	partners = make([]Partner, 0, len(targets.Matches))
	for _, tm := range targets.Matches {
		dm, ok := pair[keyOf(tm)]
		if !ok {
			lostDecoys++
			partners = append(partners, Partner{Target: tm})
			continue
		}
		n := tm.Candidates + dm.Candidates
		tm.Candidates = n
		dm.Candidates = n
		partners = append(partners, Partner{Target: tm, Decoy: dm})
	}
	return partners, lostDecoys
}

// Pool combines separate target and decoy search results without
// competition: every target, followed by its decoy partner if it has one.
// Decoys without a target partner are dropped.
func Pool(targets, decoys *Collection) (*Collection, int) {
	partners, lost := Partners(targets, decoys)
	out := &Collection{Header: targets.Header}
	for _, p := range partners {
		out.Add(p.Target)
		if p.Decoy != nil {
			out.Add(p.Decoy)
		}
	}
	return out, lost
}

// Compete runs target-decoy competition between the results of separate
// target and decoy searches, paired as in Partners. The better scoring match
// of each pair is kept. Exact ties are broken with rng. Targets without a
// partner are kept, decoys without a partner are dropped.
func Compete(targets, decoys *Collection, t ScoreType, dir fdr.Direction, rng *rand.Rand) (*Collection, CompetitionStats) {
	var stats CompetitionStats
	partners, lost := Partners(targets, decoys)
	stats.LostDecoys = lost

	out := &Collection{Header: targets.Header}
	for _, p := range partners {
		tm, dm := p.Target, p.Decoy
		if dm == nil {
			out.Add(tm)
			continue
		}
		ts, tok := tm.Score(t)
		ds, dok := dm.Score(t)
		if !tok || !dok {
			out.Add(tm)
			continue
		}

		stats.Competitions++
		diff := ts - ds
		if math.Abs(diff) < tieTol {
			stats.Ties++
			diff += 0.5 - rng.Float64()
		}
		if dir == fdr.Ascending {
			diff = -diff
		}
		if diff >= 0 {
			out.Add(tm)
		} else {
			out.Add(dm)
		}
	}
	return out, stats
}
