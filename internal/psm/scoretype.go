package psm

import (
	"errors"
	"fmt"

	"github.com/524D/mzconf/internal/fdr"
)

// ScoreType names a PSM score. The names are the column headers of the
// tab-delimited format.
type ScoreType string

const (
	SpScore          ScoreType = "sp score"
	XCorr            ScoreType = "xcorr score"
	EValue           ScoreType = "e-value"
	ExactPValue      ScoreType = "exact p-value"
	SmoothedPValue   ScoreType = "smoothed p-value"
	RefactoredXCorr  ScoreType = "refactored xcorr"
	ResEvScore       ScoreType = "res-ev score"
	ResEvPValue      ScoreType = "res-ev p-value"
	CombinedPValue   ScoreType = "combined p-value"
	PercolatorScore  ScoreType = "percolator score"
	SidakAdjusted    ScoreType = "Sidak adjusted p-value"
	LogPBonfWeibull  ScoreType = "p-value"
	TDCQValue        ScoreType = "tdc q-value"
	MixMaxQValue     ScoreType = "mix-max q-value"
	PosteriorErrProb ScoreType = "PEP"
)

var ErrUnknownScore = errors.New("unknown score type")

var scoreDirections = map[ScoreType]fdr.Direction{
	SpScore:         fdr.Descending,
	XCorr:           fdr.Descending,
	RefactoredXCorr: fdr.Descending,
	ResEvScore:      fdr.Descending,
	PercolatorScore: fdr.Descending,
	LogPBonfWeibull: fdr.Descending, // stored as -log(p)
	EValue:          fdr.Ascending,
	ExactPValue:     fdr.Ascending,
	SmoothedPValue:  fdr.Ascending,
	ResEvPValue:     fdr.Ascending,
	CombinedPValue:  fdr.Ascending,
	SidakAdjusted:   fdr.Ascending,
}

// Score types tried, in order, when none is configured
var detectOrder = []ScoreType{
	XCorr,
	EValue,
	CombinedPValue,
	ResEvPValue,
	ExactPValue,
	SmoothedPValue,
	LogPBonfWeibull,
	PercolatorScore,
}

// ParseScoreType checks that name is a score that q-values can be
// computed for.
func ParseScoreType(name string) (ScoreType, error) {
	t := ScoreType(name)
	if _, ok := scoreDirections[t]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownScore, name)
	}
	return t, nil
}

// Direction returns which end of the score range is significant for t.
func (t ScoreType) Direction() (fdr.Direction, error) {
	dir, ok := scoreDirections[t]
	if !ok {
		return 0, fmt.Errorf("cannot infer sort order for score %q: %w", string(t), ErrUnknownScore)
	}
	return dir, nil
}

// IsPValue reports whether t is a calibrated p-value, for which PEPs can be
// computed without decoys.
func (t ScoreType) IsPValue() bool {
	switch t {
	case ExactPValue, SmoothedPValue, ResEvPValue, CombinedPValue, SidakAdjusted:
		return true
	}
	return false
}

// IsScoreColumn reports whether name is the header of a known score column.
func IsScoreColumn(name string) bool {
	_, ok := scoreDirections[ScoreType(name)]
	return ok
}

// DetectScoreType returns the first score type, in order of preference,
// that the collection carries.
func DetectScoreType(c *Collection) (ScoreType, error) {
	for _, t := range detectOrder {
		if c.HasScore(t) {
			return t, nil
		}
	}
	return "", errors.New(`could not detect score type; specify it with "score"`)
}

// KnownScores returns every score type with a known direction, in column
// order.
func KnownScores() []ScoreType {
	return []ScoreType{
		SpScore, XCorr, RefactoredXCorr, ResEvScore, EValue, ExactPValue,
		SmoothedPValue, ResEvPValue, CombinedPValue, SidakAdjusted,
		LogPBonfWeibull, PercolatorScore,
	}
}
