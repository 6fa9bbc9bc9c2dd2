package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/524D/mzconf/internal/mzidentml"
	"github.com/524D/mzconf/internal/psm"
	"github.com/524D/mzconf/internal/tabfile"

	"github.com/shenwei356/xopen"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMissingDecoyFile = errors.New("decoy file from a separate target-decoy search is required for mix-max")
	ErrDecoyInput       = errors.New("appears to be a decoy file; give only target or concatenated files")
)

// A target file with its decoy file, if there is one
type inputFiles struct {
	targetPath string
	decoyPath  string
	target     *psm.Collection
	decoy      *psm.Collection
}

// Scores reported as CV terms in mzIdentML, and the score type they are
// read as
type cvScore struct {
	accession string
	name      string
	score     psm.ScoreType
}

var cvScores = []cvScore{
	{`MS:1002252`, `Comet:xcorr`, psm.XCorr},
	{`MS:1001155`, `SEQUEST:xcorr`, psm.XCorr},
	{`MS:1002255`, `Comet:spscore`, psm.SpScore},
	{`MS:1001157`, `SEQUEST:sp`, psm.SpScore},
	{`MS:1002257`, `Comet:expectation value`, psm.EValue},
	{`MS:1001330`, `X!Tandem:expectation value`, psm.EValue},
	{`MS:1001159`, `SEQUEST:expectation value`, psm.EValue},
	{`MS:1002053`, `MS-GF:EValue`, psm.EValue},
	{`MS:1001492`, `percolator:score`, psm.PercolatorScore},
}

func cvScoreType(cv mzidentml.CvParam) (psm.ScoreType, bool) {
	for _, s := range cvScores {
		if cv.Accession == s.accession || (cv.Accession == "" && cv.Name == s.name) {
			return s.score, true
		}
	}
	return "", false
}

// resolveScoreType turns the configured score into a score type. It may be
// a column name, a CV accession or a CV name. An empty name is detected
// from c.
func resolveScoreType(name string, c *psm.Collection) (psm.ScoreType, error) {
	if name == "" {
		return psm.DetectScoreType(c)
	}
	for _, s := range cvScores {
		if name == s.accession || name == s.name {
			return s.score, nil
		}
	}
	return psm.ParseScoreType(name)
}

// decoyFile returns the name of the decoy file that belongs to target:
// the first "target" in the file name replaced by "decoy". It is empty if
// the name has no "target".
func decoyFile(target string) (string, error) {
	dir, base := filepath.Split(target)
	if strings.Contains(base, "decoy") {
		return "", fmt.Errorf("%s %w", target, ErrDecoyInput)
	}
	i := strings.Index(base, "target")
	if i < 0 {
		return "", nil
	}
	return dir + base[:i] + "decoy" + base[i+len("target"):], nil
}

// readInputs locates the decoy file for every target file and reads all
// files concurrently.
func readInputs(par params) ([]inputFiles, error) {
	inputs := make([]inputFiles, len(par.args))
	for i, path := range par.args {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("target file %s not found: %w", path, err)
		}
		decoy, err := decoyFile(path)
		if err != nil {
			return nil, err
		}
		if decoy != "" {
			if _, err := os.Stat(decoy); err != nil {
				decoy = ""
			}
		}
		if decoy == "" && par.Method == "mix-max" {
			return nil, fmt.Errorf("%w (target file %s)", ErrMissingDecoyFile, path)
		}
		inputs[i] = inputFiles{targetPath: path, decoyPath: decoy}
	}

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := range inputs {
		in := &inputs[i]
		g.Go(func() error {
			var err error
			in.target, err = readFile(in.targetPath, par.DecoyPrefix, false)
			return err
		})
		if in.decoyPath != "" {
			g.Go(func() error {
				var err error
				in.decoy, err = readFile(in.decoyPath, par.DecoyPrefix, true)
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// readFile reads matches from a tab-delimited or mzIdentML file.
// Every match of a decoy file is a decoy.
func readFile(path, decoyPrefix string, decoy bool) (*psm.Collection, error) {
	name := strings.TrimSuffix(strings.ToLower(path), ".gz")
	if strings.HasSuffix(name, ".mzid") {
		return readMzIdentML(path, decoyPrefix, decoy)
	}
	return tabfile.Read(path, tabfile.Options{DecoyPrefix: decoyPrefix, Decoy: decoy})
}

func readMzIdentML(path, decoyPrefix string, decoy bool) (*psm.Collection, error) {
	fh, err := xopen.Ropen(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	mzIdentML, err := mzidentml.Read(fh)
	if err != nil {
		return nil, fmt.Errorf("mzidentml.Read %s: %w", path, err)
	}
	c := &psm.Collection{}
	for i := 0; i < mzIdentML.NumIdents(); i++ {
		ident, err := mzIdentML.Ident(i)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		m := &psm.Match{
			File:     filepath.Base(ident.SpectraFile),
			Scan:     ident.Scan,
			Charge:   ident.Charge,
			Sequence: ident.ModSeq,
			Proteins: ident.Accessions,
			Rank:     ident.Rank,
		}
		switch {
		case decoy:
			m.Decoy = true
		case ident.DecoyKnown:
			m.Decoy = ident.Decoy
		default:
			m.Decoy = len(m.Proteins) > 0
			for _, p := range m.Proteins {
				if !strings.HasPrefix(p, decoyPrefix) {
					m.Decoy = false
				}
			}
		}
		for _, cv := range ident.Cv {
			t, ok := cvScoreType(cv)
			if !ok {
				continue
			}
			// The first term of a score type wins
			if _, seen := m.Score(t); seen {
				continue
			}
			score, err := strconv.ParseFloat(cv.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid score value %q for %s", path, cv.Value, cv.Accession)
			}
			m.SetScore(t, score)
		}
		c.Add(m)
	}
	return c, nil
}
