// Package psm holds peptide-spectrum matches and the operations that prepare
// them for confidence estimation: rank filtering, target-decoy competition,
// peptide-level selection and Sidak adjustment.
package psm

import (
	"sort"

	"github.com/524D/mzconf/internal/fdr"
)

// Match is one peptide-spectrum match.
type Match struct {
	File       string // spectrum file the match was found in
	Scan       int
	Charge     int
	Sequence   string // peptide with modification encoding, e.g. PEPM[15.9949]IDE
	Proteins   []string
	Rank       int
	Decoy      bool
	Candidates int // candidate peptides scored against the spectrum

	scores map[ScoreType]float64

	// Columns keeps the raw input fields by column name so that they can be
	// written back unchanged.
	Columns map[string]string

	QValue         float64
	PEP            float64
	BestPerPeptide bool
}

// Score returns the score of type t, if the match has one.
func (m *Match) Score(t ScoreType) (float64, bool) {
	s, ok := m.scores[t]
	return s, ok
}

// SetScore sets the score of type t.
func (m *Match) SetScore(t ScoreType, s float64) {
	if m.scores == nil {
		m.scores = make(map[ScoreType]float64)
	}
	m.scores[t] = s
}

// Collection is an ordered set of matches, typically from one file.
type Collection struct {
	Header  []string // column order of the input, if it had one
	Matches []*Match
}

// Add appends a match.
func (c *Collection) Add(m *Match) {
	c.Matches = append(c.Matches, m)
}

// Len returns the number of matches.
func (c *Collection) Len() int {
	return len(c.Matches)
}

// HasScore reports whether any match carries a score of type t.
func (c *Collection) HasScore(t ScoreType) bool {
	for _, m := range c.Matches {
		if _, ok := m.scores[t]; ok {
			return true
		}
	}
	return false
}

// Scores returns the scores of type t, in match order. Matches without
// such a score are left out.
func (c *Collection) Scores(t ScoreType) []float64 {
	scores := make([]float64, 0, len(c.Matches))
	for _, m := range c.Matches {
		if s, ok := m.scores[t]; ok {
			scores = append(scores, s)
		}
	}
	return scores
}

// TopRanked returns the matches with rank at most n and the number left out.
func (c *Collection) TopRanked(n int) (*Collection, int) {
	top := &Collection{Header: c.Header}
	skipped := 0
	for _, m := range c.Matches {
		if m.Rank > n {
			skipped++
			continue
		}
		top.Add(m)
	}
	return top, skipped
}

// Split separates targets from decoys, keeping the order of each.
func (c *Collection) Split() (targets, decoys *Collection) {
	targets = &Collection{Header: c.Header}
	decoys = &Collection{Header: c.Header}
	for _, m := range c.Matches {
		if m.Decoy {
			decoys.Add(m)
		} else {
			targets.Add(m)
		}
	}
	return targets, decoys
}

// Sort orders the matches by score t, most significant first. Matches
// without the score go last. Equal scores keep their order.
func (c *Collection) Sort(t ScoreType, dir fdr.Direction) {
	sort.SliceStable(c.Matches, func(i, j int) bool {
		si, oki := c.Matches[i].scores[t]
		sj, okj := c.Matches[j].scores[t]
		if !oki || !okj {
			return oki && !okj
		}
		return dir.Better(si, sj)
	})
}

// Append adds all matches of other, taking over its header if c has none.
func (c *Collection) Append(other *Collection) {
	if c.Header == nil {
		c.Header = other.Header
	}
	c.Matches = append(c.Matches, other.Matches...)
}
