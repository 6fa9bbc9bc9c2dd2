package psm

import (
	"strconv"
	"strings"

	"github.com/524D/mzconf/internal/fdr"
)

// KeyFunc maps a match to the peptide it counts for.
type KeyFunc func(m *Match) string

// SequenceKey uses the modified sequence as is (case sensitive).
func SequenceKey(m *Match) string {
	return m.Sequence
}

// PeptideKey returns a KeyFunc. With combineMods, modified forms of a
// peptide count as one; with combineCharge, each charge state counts as a
// separate peptide.
func PeptideKey(combineMods, combineCharge bool) KeyFunc {
	return func(m *Match) string {
		key := m.Sequence
		if combineMods {
			key = StripModifications(key)
		}
		if combineCharge {
			key += strconv.Itoa(m.Charge)
		}
		return key
	}
}

// StripModifications removes bracketed mass annotations and any character
// that is not an upper case residue letter.
func StripModifications(seq string) string {
	var b strings.Builder
	depth := 0
	for _, r := range seq {
		switch {
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MarkBestPerPeptide flags, for every distinct peptide among the rank 1
// matches, exactly one match as best for that peptide. The first pass finds
// the best score per peptide; the second flags the first match in iteration
// order that reaches it. Tied matches later in the list are not flagged.
// It returns the number of flagged matches.
func MarkBestPerPeptide(matches []*Match, t ScoreType, dir fdr.Direction, key KeyFunc) int {
	best := make(map[string]float64)
	for _, m := range matches {
		if m.Rank != 1 {
			continue
		}
		s, ok := m.Score(t)
		if !ok {
			continue
		}
		k := key(m)
		if b, seen := best[k]; !seen || dir.Better(s, b) {
			best[k] = s
		}
	}

	flagged := 0
	for _, m := range matches {
		if m.Rank != 1 {
			continue
		}
		s, ok := m.Score(t)
		if !ok {
			continue
		}
		k := key(m)
		if b, ok := best[k]; ok && b == s {
			m.BestPerPeptide = true
			flagged++
			// Later ties must not match again
			delete(best, k)
		}
	}
	return flagged
}

// PeptideLevel keeps only the best match per peptide, chosen as in
// MarkBestPerPeptide, and returns how many targets and decoys were dropped.
// Targets and decoys compete for the same peptide key.
func PeptideLevel(c *Collection, t ScoreType, dir fdr.Direction, key KeyFunc) (kept *Collection, targetsSkipped, decoysSkipped int) {
	for _, m := range c.Matches {
		m.BestPerPeptide = false
	}
	MarkBestPerPeptide(c.Matches, t, dir, key)
	kept = &Collection{Header: c.Header}
	for _, m := range c.Matches {
		if m.BestPerPeptide {
			kept.Add(m)
			continue
		}
		if m.Decoy {
			decoysSkipped++
		} else {
			targetsSkipped++
		}
	}
	for _, m := range kept.Matches {
		m.BestPerPeptide = false
	}
	return kept, targetsSkipped, decoysSkipped
}
