// Package tabfile reads and writes tab-delimited match files, one match per
// line with a header naming the columns. Compressed files are handled
// transparently.
package tabfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/524D/mzconf/internal/psm"

	"github.com/shenwei356/xopen"
)

// Column names
const (
	ColFile        = "file"
	ColScan        = "scan"
	ColCharge      = "charge"
	ColSequence    = "sequence"
	ColProtein     = "protein id"
	ColRank        = "xcorr rank"
	ColCandidates  = "distinct matches/spectrum"
	ColMatches     = "matches/spectrum"
	ColTargetDecoy = "target/decoy"
	ColBest        = "best per peptide"
)

var (
	ErrMissingColumn = errors.New("required column missing")
	ErrBadField      = errors.New("malformed field")
)

// Options controls how matches are read.
type Options struct {
	// A protein whose id starts with DecoyPrefix is a decoy protein. A match
	// is a decoy when all its proteins are.
	DecoyPrefix string
	// Decoy marks every match as a decoy, for the output of a separate
	// decoy search.
	Decoy bool
}

// Read parses the match file at path.
func Read(path string, opt Options) (*psm.Collection, error) {
	fh, err := xopen.Ropen(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	c, err := Parse(fh, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse reads matches from r.
func Parse(r io.Reader, opt Options) (*psm.Collection, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return &psm.Collection{}, nil
	}
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, req := range []string{ColScan, ColCharge, ColSequence} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, req)
		}
	}
	candCol := ColCandidates
	if _, ok := col[candCol]; !ok {
		candCol = ColMatches
	}

	c := &psm.Collection{Header: header}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		get := func(name string) string {
			if i, ok := col[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		m := &psm.Match{
			File:     get(ColFile),
			Sequence: get(ColSequence),
			Rank:     1,
			Columns:  make(map[string]string, len(header)),
		}
		for i, h := range header {
			if i < len(rec) {
				m.Columns[h] = rec[i]
			}
		}
		if m.Scan, err = atoi(get(ColScan), ColScan, line); err != nil {
			return nil, err
		}
		if m.Charge, err = atoi(get(ColCharge), ColCharge, line); err != nil {
			return nil, err
		}
		if s := get(ColRank); s != "" {
			if m.Rank, err = atoi(s, ColRank, line); err != nil {
				return nil, err
			}
		}
		if s := get(candCol); s != "" {
			if m.Candidates, err = atoi(s, candCol, line); err != nil {
				return nil, err
			}
		}
		if s := get(ColProtein); s != "" {
			m.Proteins = strings.Split(s, ",")
		}
		switch {
		case opt.Decoy:
			m.Decoy = true
		case get(ColTargetDecoy) != "":
			m.Decoy = get(ColTargetDecoy) == "decoy"
		default:
			m.Decoy = allDecoy(m.Proteins, opt.DecoyPrefix)
		}
		for _, h := range header {
			if !psm.IsScoreColumn(h) {
				continue
			}
			s := get(h)
			if s == "" {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w %q in column %q", line, ErrBadField, s, h)
			}
			m.SetScore(psm.ScoreType(h), v)
		}
		if err := readDerived(m, get, line); err != nil {
			return nil, err
		}
		c.Add(m)
	}
	return c, nil
}

// readDerived picks up the columns written by an earlier run.
func readDerived(m *psm.Match, get func(string) string, line int) error {
	for _, h := range []string{string(psm.TDCQValue), string(psm.MixMaxQValue), string(psm.PosteriorErrProb)} {
		s := get(h)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("line %d: %w %q in column %q", line, ErrBadField, s, h)
		}
		if h == string(psm.PosteriorErrProb) {
			m.PEP = v
		} else {
			m.QValue = v
		}
	}
	m.BestPerPeptide = get(ColBest) == "1"
	return nil
}

func atoi(s, column string, line int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("line %d: %w %q in column %q", line, ErrBadField, s, column)
	}
	return v, nil
}

// allDecoy reports whether every protein id starts with prefix.
func allDecoy(proteins []string, prefix string) bool {
	if len(proteins) == 0 || prefix == "" {
		return false
	}
	for _, p := range proteins {
		if !strings.HasPrefix(strings.TrimSpace(p), prefix) {
			return false
		}
	}
	return true
}
