package tabfile

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/524D/mzconf/internal/psm"

	"github.com/shenwei356/xopen"
)

// Header used for matches that were not read from a tab-delimited file
var defaultHeader = []string{
	ColFile, ColScan, ColCharge, ColSequence, ColProtein, ColRank, ColCandidates,
}

// WriteOptions selects the derived columns that are appended.
type WriteOptions struct {
	QValueColumn   string          // header of the q-value column
	Scores         []psm.ScoreType // computed scores to add if missing
	PEP            bool
	BestPerPeptide bool
}

// Write stores the matches of c at path. The input columns are written back
// in their input order, followed by the derived columns. A path ending in
// .gz is compressed.
func Write(path string, c *psm.Collection, opt WriteOptions) error {
	fh, err := xopen.Wopen(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	header := c.Header
	if header == nil {
		header = append([]string(nil), defaultHeader...)
		for _, t := range scoreTypes(c) {
			header = append(header, string(t))
		}
	}
	derived := make(map[string]bool)
	var extra []string
	for _, t := range opt.Scores {
		extra = append(extra, string(t))
	}
	if opt.QValueColumn != "" {
		extra = append(extra, opt.QValueColumn)
	}
	if opt.PEP {
		extra = append(extra, string(psm.PosteriorErrProb))
	}
	if opt.BestPerPeptide {
		extra = append(extra, ColBest)
	}
	for _, h := range extra {
		derived[h] = true
	}
	// Derived columns of an earlier run are replaced
	var out []string
	for _, h := range header {
		if !derived[h] {
			out = append(out, h)
		}
	}
	out = append(out, extra...)

	w := csv.NewWriter(fh)
	w.Comma = '\t'
	if err := w.Write(out); err != nil {
		return err
	}
	rec := make([]string, len(out))
	for _, m := range c.Matches {
		for i, h := range out {
			rec[i] = field(m, h, opt)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// field returns the value of column h for m.
func field(m *psm.Match, h string, opt WriteOptions) string {
	switch h {
	case opt.QValueColumn:
		return formatFloat(m.QValue)
	case string(psm.PosteriorErrProb):
		if opt.PEP {
			return formatFloat(m.PEP)
		}
	case ColBest:
		if opt.BestPerPeptide {
			if m.BestPerPeptide {
				return "1"
			}
			return "0"
		}
	}
	for _, t := range opt.Scores {
		if h == string(t) {
			if s, ok := m.Score(t); ok {
				return formatFloat(s)
			}
			return ""
		}
	}
	if v, ok := m.Columns[h]; ok {
		return v
	}
	switch h {
	case ColFile:
		return m.File
	case ColScan:
		return strconv.Itoa(m.Scan)
	case ColCharge:
		return strconv.Itoa(m.Charge)
	case ColSequence:
		return m.Sequence
	case ColProtein:
		return strings.Join(m.Proteins, ",")
	case ColRank:
		return strconv.Itoa(m.Rank)
	case ColCandidates:
		return strconv.Itoa(m.Candidates)
	}
	if s, ok := m.Score(psm.ScoreType(h)); ok {
		return formatFloat(s)
	}
	return ""
}

// scoreTypes lists the known score columns that c carries.
func scoreTypes(c *psm.Collection) []psm.ScoreType {
	var types []psm.ScoreType
	for _, t := range psm.KnownScores() {
		if c.HasScore(t) {
			types = append(types, t)
		}
	}
	return types
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
