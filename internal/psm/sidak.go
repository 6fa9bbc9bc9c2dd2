package psm

import (
	"errors"
	"fmt"
	"math"
)

var ErrNoCandidates = errors.New("sidak: candidate count missing")

// SidakAdjust stores 1-(1-p)^n as SidakAdjusted for every match, where p is
// the score of type t and n the number of candidate peptides for the
// spectrum. Only meaningful for rank 1 matches of a p-value score.
func SidakAdjust(c *Collection, t ScoreType) error {
	for _, m := range c.Matches {
		p, ok := m.Score(t)
		if !ok {
			continue
		}
		if m.Candidates <= 0 {
			return fmt.Errorf("%w for scan %d of %s", ErrNoCandidates, m.Scan, m.File)
		}
		// -expm1(n*log1p(-p)) keeps precision for tiny p
		m.SetScore(SidakAdjusted, -math.Expm1(float64(m.Candidates)*math.Log1p(-p)))
	}
	return nil
}
