// Copyright 2018 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/524D/mzconf/internal/confidence"
	"github.com/524D/mzconf/internal/config"
	"github.com/524D/mzconf/internal/fdr"
	"github.com/524D/mzconf/internal/nullmodel"
	"github.com/524D/mzconf/internal/psm"
	"github.com/524D/mzconf/internal/tabfile"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
)

// Program name and version, written to the summary
const progName = "mzConf"

var progVersion = `Unknown`

// Format of the summary, if it ever changes we should still be able to
// parse output from old versions
const outputFormatVersion = "1.0"

const (
	infoDefault = iota
	infoSilent
	infoVerbose
)

var red = color.New(color.FgRed).SprintFunc()

var ErrOutputExists = errors.New("output file exists, use --overwrite to replace it")

// Command line parameters
type params struct {
	config.Params
	paramFile string   // YAML parameter file, read before the flags are applied
	verbosity int      // Verbosity of progress messages (infoDefault...)
	args      []string // Target files
	debug     bool     // Enable debug info (environment variable MZCONF_DEBUG=1)
}

// runSummary is written as JSON next to the target file
type runSummary struct {
	MzConfVersion string
	FormatVersion string
	Inputs        []string
	confidence.Summary
	Debug *debugInfo `json:",omitempty"`
}

func (p params) infof(format string, a ...any) {
	if p.verbosity != infoSilent {
		fmt.Fprintf(os.Stderr, format, a...)
	}
}

func (p params) verbosef(format string, a ...any) {
	if p.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, format, a...)
	}
}

func outputPaths(par params) (target, summary string) {
	prefix := ""
	if par.FileRoot != "" {
		prefix = par.FileRoot + "."
	}
	return filepath.Join(par.OutputDir, prefix+"assign-confidence.target.txt"),
		filepath.Join(par.OutputDir, prefix+"assign-confidence.summary.json")
}

// assignConfidence runs the whole pipeline for the files in par.args
func assignConfidence(par params) (confidence.Summary, error) {
	var sum confidence.Summary
	if err := par.Validate(); err != nil {
		return sum, err
	}
	targetPath, summaryPath := outputPaths(par)
	if !par.Overwrite {
		for _, p := range []string{targetPath, summaryPath} {
			if _, err := os.Stat(p); err == nil {
				return sum, fmt.Errorf("%s: %w", p, ErrOutputExists)
			}
		}
	}

	t := time.Now()
	par.verbosef("Reading matches: ")
	inputs, err := readInputs(par)
	if err != nil {
		return sum, err
	}
	par.verbosef("%s\n", time.Since(t))
	for _, in := range inputs {
		par.infof("Found %d PSMs in %s.\n", in.target.Len(), in.targetPath)
		if in.decoy != nil {
			par.infof("Found %d PSMs in %s.\n", in.decoy.Len(), in.decoyPath)
		}
	}

	scoreType, err := resolveScoreType(par.Score, inputs[0].target)
	if err != nil {
		return sum, err
	}
	dir, err := scoreType.Direction()
	if err != nil {
		return sum, err
	}
	par.infof("Score type=%s, sorting in %s order\n", scoreType, dir)

	t = time.Now()
	par.verbosef("Preparing matches: ")
	rng := rand.New(rand.NewSource(par.Seed))
	pooled, err := poolMatches(par, inputs, scoreType, dir, rng)
	if err != nil {
		return sum, err
	}
	key := psm.PeptideKey(par.CombineModifiedPeptides, par.CombineChargeStates)
	if par.PeptideLevel {
		var tSkipped, dSkipped int
		pooled, tSkipped, dSkipped = psm.PeptideLevel(pooled, scoreType, dir, key)
		if tSkipped+dSkipped > 0 {
			par.infof("Skipped %d target and %d decoy PSMs due to peptide-level filtering.\n", tSkipped, dSkipped)
		}
	}
	var extraScores []psm.ScoreType
	if par.Sidak {
		if !scoreType.IsPValue() {
			log.Printf("Sidak adjustment may not be compatible with score: %s", scoreType)
		}
		if err := psm.SidakAdjust(pooled, scoreType); err != nil {
			return sum, err
		}
		scoreType, dir = psm.SidakAdjusted, fdr.Ascending
		extraScores = append(extraScores, psm.SidakAdjusted)
	}
	targets, decoys := pooled.Split()
	par.verbosef("%s\n", time.Since(t))

	t = time.Now()
	par.verbosef("Computing q-values: ")
	method, err := confidence.NewMethod(par.Method, par.Pi0Option(), nullmodel.New(par.Seed))
	if err != nil {
		return sum, err
	}
	sum, err = confidence.Assign(targets, decoys, confidence.Options{
		Method:     method,
		Score:      scoreType,
		Direction:  dir,
		PEP:        par.PEP,
		Estimator:  nullmodel.New(par.Seed),
		PeptideKey: key,
	})
	if err != nil {
		return sum, err
	}
	par.verbosef("%s\n", time.Since(t))
	debugLogMatches(targets, scoreType)
	if sum.Pi0 != nil {
		par.infof("Estimated pi0 = %g\n", *sum.Pi0)
	}
	for _, lvl := range sum.Accepted {
		par.infof("Number of PSMs at %g%% FDR = %d.\n", lvl.FDR*100, lvl.Matches)
	}

	t = time.Now()
	par.verbosef("Writing results to %s: ", par.OutputDir)
	if err := os.MkdirAll(par.OutputDir, 0755); err != nil {
		return sum, err
	}
	err = tabfile.Write(targetPath, targets, tabfile.WriteOptions{
		QValueColumn:   method.Column(),
		Scores:         extraScores,
		PEP:            par.PEP,
		BestPerPeptide: true,
	})
	if err != nil {
		return sum, err
	}
	rs := runSummary{
		MzConfVersion: progVersion,
		FormatVersion: outputFormatVersion,
		Inputs:        par.args,
		Summary:       sum,
	}
	if par.debug {
		rs.Debug = newDebugInfo(targets, decoys, scoreType)
	}
	if err := writeSummary(summaryPath, rs); err != nil {
		return sum, err
	}
	par.verbosef("%s\n", time.Since(t))
	return sum, nil
}

// poolMatches filters each input by rank and combines targets and decoys
// into one collection. Separately searched decoys compete with their targets
// for TDC; mix-max and peptide-level filtering keep both.
func poolMatches(par params, inputs []inputFiles, t psm.ScoreType, dir fdr.Direction, rng *rand.Rand) (*psm.Collection, error) {
	pooled := &psm.Collection{}
	tRankSkipped, dRankSkipped := 0, 0
	for _, in := range inputs {
		if !in.target.HasScore(t) {
			return nil, fmt.Errorf("the PSM feature %q was not found in file %q", t, in.targetPath)
		}
		targets, skipped := in.target.TopRanked(par.TopMatch)
		tRankSkipped += skipped
		if in.decoy == nil {
			pooled.Append(targets)
			continue
		}
		decoys, skipped := in.decoy.TopRanked(par.TopMatch)
		dRankSkipped += skipped
		if par.Method == "mix-max" {
			pooled.Append(targets)
			pooled.Append(decoys)
			continue
		}
		if par.PeptideLevel {
			paired, lost := psm.Pool(targets, decoys)
			if lost > 0 {
				par.infof("Failed to find %d decoys.\n", lost)
			}
			pooled.Append(paired)
			continue
		}
		won, stats := psm.Compete(targets, decoys, t, dir, rng)
		par.verbosef("\n%d matches after competition, ", won.Len())
		if stats.Competitions > 0 {
			par.infof("Randomly broke %d ties in %d target-decoy competitions.\n", stats.Ties, stats.Competitions)
		}
		if stats.LostDecoys > 0 {
			par.infof("Failed to find %d decoys.\n", stats.LostDecoys)
		}
		pooled.Append(won)
	}
	if tRankSkipped+dRankSkipped > 0 {
		par.infof("Skipped %d target and %d decoy PSMs with rank > %d.\n", tRankSkipped, dRankSkipped, par.TopMatch)
	}
	return pooled, nil
}

func writeSummary(path string, rs runSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	e := json.NewEncoder(f)
	e.SetIndent(``, `  `) // Make output easier to read for humans
	return e.Encode(rs)
}

// flagValues holds the command line flags before they are merged with the
// parameter file
type flagValues struct {
	score, decoyPrefix, outputDir, fileRoot  string
	topMatch                                 int
	pi0                                      float64
	seed                                     uint64
	peptideLevel, combineCharge, combineMods bool
	sidak, pep, overwrite                    bool
	verbose, quiet                           bool
}

// mergeFlags builds the run parameters: defaults, then the parameter file,
// then every flag that was given explicitly.
func mergeFlags(cmd *cobra.Command, method string, fv *flagValues, paramFile string, args []string) (params, error) {
	par := params{Params: config.Default(), paramFile: paramFile, args: args}
	par.Method = method
	if paramFile != "" {
		if err := config.Load(paramFile, &par.Params); err != nil {
			return par, err
		}
		if par.Method != method {
			return par, fmt.Errorf("parameter file sets estimation-method %q, but command is %q", par.Method, method)
		}
	}
	fs := cmd.Flags()
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("score", func() { par.Score = fv.score })
	set("decoy-prefix", func() { par.DecoyPrefix = fv.decoyPrefix })
	set("output-dir", func() { par.OutputDir = fv.outputDir })
	set("fileroot", func() { par.FileRoot = fv.fileRoot })
	set("top-match", func() { par.TopMatch = fv.topMatch })
	set("seed", func() { par.Seed = fv.seed })
	set("peptide-level", func() { par.PeptideLevel = fv.peptideLevel })
	set("combine-charge-states", func() { par.CombineChargeStates = fv.combineCharge })
	set("combine-modified-peptides", func() { par.CombineModifiedPeptides = fv.combineMods })
	set("sidak", func() { par.Sidak = fv.sidak })
	set("pep", func() { par.PEP = fv.pep })
	set("overwrite", func() { par.Overwrite = fv.overwrite })
	set("pi-zero", func() { pi0 := fv.pi0; par.Pi0 = &pi0 })

	if fv.verbose {
		par.verbosity = infoVerbose
	}
	if fv.quiet {
		par.verbosity = infoSilent
	}
	// Check if debug output should be enabled
	par.debug = os.Getenv("MZCONF_DEBUG") == `1`
	return par, nil
}

// newMethodCommand returns the sub command for one estimation method
func newMethodCommand(method, short string, fv *flagValues, paramFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   method + " [flags] <target file>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			par, err := mergeFlags(cmd, method, fv, *paramFile, args)
			if err != nil {
				return err
			}
			_, err = assignConfidence(par)
			return err
		},
	}
	flags := cmd.Flags()
	switch method {
	case "tdc":
		flags.BoolVar(&fv.peptideLevel, "peptide-level", false,
			"Keep only the best scoring match per peptide before computing q-values")
	case "mix-max":
		flags.Float64Var(&fv.pi0, "pi-zero", 1.0,
			`Fraction of incorrect target matches. If not given, it is estimated from the data`)
	}
	return cmd
}

// newRootCmd builds the mzconf command with its tdc and mix-max sub commands
func newRootCmd() *cobra.Command {
	var (
		fv        flagValues
		paramFile string
	)
	def := config.Default()

	rootCmd := &cobra.Command{
		Use:   "mzconf",
		Short: "Assign q-values and posterior error probabilities to peptide-spectrum matches",
		Long: `mzconf computes, for every target peptide-spectrum match, the minimal FDR at
which it is accepted (its q-value), from the scores of target and decoy matches.

For each target file name containing "target", the decoy file is found by
replacing "target" with "decoy". Without a decoy file, the target file is
treated as a concatenated search holding both targets and decoys.

When environment variable MZCONF_DEBUG=1, extra information is added to the
JSON summary.`,
		Version:       progVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&paramFile, "parameter-file", "", "YAML `file` with parameters; flags override it")
	pf.StringVar(&fv.score, "score", "", "Score column or mzIdentML CV term to use. Detected if empty")
	pf.StringVar(&fv.decoyPrefix, "decoy-prefix", def.DecoyPrefix, "Prefix of decoy protein ids")
	pf.IntVar(&fv.topMatch, "top-match", def.TopMatch, "Use matches up to this rank")
	pf.Uint64Var(&fv.seed, "seed", def.Seed, "Seed of the random number generator")
	pf.StringVar(&fv.outputDir, "output-dir", def.OutputDir, "`directory` for the output files")
	pf.StringVar(&fv.fileRoot, "fileroot", "", "Prefix for the output file names")
	pf.BoolVar(&fv.overwrite, "overwrite", false, "Replace existing output files")
	pf.BoolVar(&fv.combineCharge, "combine-charge-states", false, "Combine charge state with peptide sequence, so each charge state counts as a separate peptide")
	pf.BoolVar(&fv.combineMods, "combine-modified-peptides", false, "Count modified forms of a peptide as one peptide")
	pf.BoolVar(&fv.sidak, "sidak", false, "Sidak adjust p-values by the number of candidate peptides")
	pf.BoolVar(&fv.pep, "pep", false, "Compute posterior error probabilities")
	pf.BoolVar(&fv.verbose, "verbose", false, "Print more verbose progress information")
	pf.BoolVar(&fv.quiet, "quiet", false, "Don't print any output except for errors")
	pf.StringVar(&debugScans, "debug", "", "Print debug output for the given scan `range`, e.g. 1000:1200")
	pf.StringVar(&debugQValue, "debug-qvalue", "", "Print debug output for the given q-value `range`, e.g. 0:0.01")

	rootCmd.AddCommand(
		newMethodCommand("tdc", "Estimate q-values with target-decoy competition", &fv, &paramFile),
		newMethodCommand("mix-max", "Estimate q-values with the mix-max procedure", &fv, &paramFile),
	)

	return rootCmd
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		fmt.Fprintln(os.Stderr, red("Try 'mzconf --help' for more information"))
		os.Exit(1)
	}
}
