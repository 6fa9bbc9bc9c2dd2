package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/524D/mzconf/internal/confidence"
	"github.com/524D/mzconf/internal/config"
	"github.com/524D/mzconf/internal/fdr"
	"github.com/524D/mzconf/internal/mzidentml"
	"github.com/524D/mzconf/internal/psm"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"golang.org/x/exp/rand"
)

func TestParseFloat64Range(t *testing.T) {
	// Test case 1: Valid input range
	min, max, err := parseFloat64Range("0.01:0.05", 0.0, 1.0)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if min != 0.01 {
		t.Errorf("Expected min to be 0.01, got: %f", min)
	}
	if max != 0.05 {
		t.Errorf("Expected max to be 0.05, got: %f", max)
	}

	// Test case 2: Empty input range
	min, max, err = parseFloat64Range("", 0.0, 1.0)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if min != 0.0 || max != 1.0 {
		t.Errorf("Expected defaults 0.0:1.0, got: %f:%f", min, max)
	}

	// Test case 3: Invalid input range
	min, max, err = parseFloat64Range("0.5:0.1", 0.0, 1.0)
	if !errors.Is(err, ErrRangeSpec) {
		t.Errorf("Expected error: %v, got: %v", ErrRangeSpec, err)
	}
	if min != 0.1 || max != 0.1 {
		t.Errorf("Expected 0.1:0.1, got: %f:%f", min, max)
	}

	// Test case 4: Only max specified, with exponent
	min, max, err = parseFloat64Range(":1e-2", 0.0, 1.0)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if min != 0.0 || max != 0.01 {
		t.Errorf("Expected 0.0:0.01, got: %f:%f", min, max)
	}

	// Test case 5: Out of range
	min, max, err = parseFloat64Range("-2.0:2.0", 0.0, 1.0)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if min != 0.0 || max != 1.0 {
		t.Errorf("Expected 0.0:1.0, got: %f:%f", min, max)
	}
}

func TestParseIntRange(t *testing.T) {
	tests := []struct {
		r                string
		wantMin, wantMax int
		wantErr          error
	}{
		{"100:200", 100, 200, nil},
		{"100:", 100, 1000, nil},
		{":50", 0, 50, nil},
		{"", 0, 1000, nil},
		{"42", 42, 42, nil},
		{"-5:5000", 0, 1000, nil},
		{"300:200", 200, 200, ErrRangeSpec},
	}
	for i, tc := range tests {
		min, max, err := parseIntRange(tc.r, 0, 1000)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("Test case %d: Expected error: %v, got: %v", i+1, tc.wantErr, err)
		}
		if min != tc.wantMin || max != tc.wantMax {
			t.Errorf("Test case %d: Expected %d:%d, got: %d:%d", i+1, tc.wantMin, tc.wantMax, min, max)
		}
	}
}

func TestDecoyFile(t *testing.T) {
	got, err := decoyFile(filepath.Join("results", "run1.target.txt"))
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if want := filepath.Join("results", "run1.decoy.txt"); got != want {
		t.Errorf("Expected %q, got: %q", want, got)
	}

	// Concatenated search
	got, err = decoyFile("target-dir/concat.txt")
	if err != nil || got != "" {
		t.Errorf("Expected no decoy file, got: %q (%v)", got, err)
	}

	_, err = decoyFile("run1.decoy.txt")
	if !errors.Is(err, ErrDecoyInput) {
		t.Errorf("Expected error: %v, got: %v", ErrDecoyInput, err)
	}
}

func TestResolveScoreType(t *testing.T) {
	c := &psm.Collection{}
	m := &psm.Match{}
	m.SetScore(psm.EValue, 0.1)
	c.Add(m)

	tests := []struct {
		name string
		want psm.ScoreType
	}{
		{"", psm.EValue},
		{"xcorr score", psm.XCorr},
		{"MS:1002252", psm.XCorr},
		{"Comet:expectation value", psm.EValue},
		{"percolator:score", psm.PercolatorScore},
	}
	for _, tc := range tests {
		got, err := resolveScoreType(tc.name, c)
		if err != nil {
			t.Errorf("%q: Expected no error, got: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%q: Expected %q, got: %q", tc.name, tc.want, got)
		}
	}
	if _, err := resolveScoreType("MS:9999999", c); !errors.Is(err, psm.ErrUnknownScore) {
		t.Errorf("Expected error: %v, got: %v", psm.ErrUnknownScore, err)
	}

	if st, ok := cvScoreType(mzidentml.CvParam{Name: "SEQUEST:xcorr"}); !ok || st != psm.XCorr {
		t.Errorf("Expected CV name to map to xcorr, got: %q (%v)", st, ok)
	}
}

const testTargets = "file\tscan\tcharge\tsequence\tprotein id\txcorr rank\tdistinct matches/spectrum\txcorr score\n" +
	"run1.mzML\t1\t2\tAAAK\tsp|P1\t1\t10\t10\n" +
	"run1.mzML\t2\t2\tCCCK\tsp|P2\t1\t10\t6\n" +
	"run1.mzML\t3\t2\tDDDK\tsp|P3\t1\t10\t8\n" +
	"run1.mzML\t3\t2\tEEEK\tsp|P3\t2\t10\t7.5\n" +
	"run1.mzML\t4\t2\tFFFK\tsp|P4\t1\t10\t3\n"

const testDecoys = "file\tscan\tcharge\tsequence\tprotein id\txcorr rank\tdistinct matches/spectrum\txcorr score\n" +
	"run1.mzML\t1\t2\tKAAA\tdecoy_sp|P1\t1\t10\t9\n" +
	"run1.mzML\t2\t2\tKCCC\tdecoy_sp|P2\t1\t10\t7\n" +
	"run1.mzML\t3\t2\tKDDD\tdecoy_sp|P3\t1\t10\t5\n" +
	"run1.mzML\t4\t2\tKFFF\tdecoy_sp|P4\t1\t10\t4\n"

func writeTestInputs(t *testing.T) (dir, target string) {
	t.Helper()
	dir = t.TempDir()
	target = filepath.Join(dir, "run1.target.txt")
	if err := os.WriteFile(target, []byte(testTargets), 0644); err != nil {
		t.Fatalf("Error writing test file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run1.decoy.txt"), []byte(testDecoys), 0644); err != nil {
		t.Fatalf("Error writing test file: %v", err)
	}
	return dir, target
}

func readSummary(t *testing.T, path string) runSummary {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Error reading summary: %v", err)
	}
	var rs runSummary
	if err := json.Unmarshal(data, &rs); err != nil {
		t.Fatalf("Error parsing summary: %v", err)
	}
	return rs
}

func TestTDCCommand(t *testing.T) {
	dir, target := writeTestInputs(t)
	out := filepath.Join(dir, "out")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"tdc", "--quiet", "--pep", "--output-dir", out, target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "assign-confidence.target.txt"))
	if err != nil {
		t.Fatalf("Error reading output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// Scans 2 and 4 are won by decoys, the rank 2 match is skipped
	if len(lines) != 3 {
		t.Fatalf("Expected header and 2 targets, got %d lines", len(lines))
	}
	if !strings.HasSuffix(lines[0], "\ttdc q-value\tPEP\tbest per peptide") {
		t.Errorf("Unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "\tAAAK\t") || !strings.Contains(lines[2], "\tDDDK\t") {
		t.Errorf("Expected AAAK then DDDK, got:\n%s", data)
	}

	rs := readSummary(t, filepath.Join(out, "assign-confidence.summary.json"))
	want := confidence.Summary{
		Method:         "tdc",
		Score:          "xcorr score",
		Direction:      "descending",
		Targets:        2,
		Decoys:         2,
		Accepted:       []confidence.Level{{FDR: 0.01, Matches: 2}, {FDR: 0.05, Matches: 2}, {FDR: 0.1, Matches: 2}},
		BestPerPeptide: 2,
	}
	if diff := cmp.Diff(want, rs.Summary, cmpopts.IgnoreFields(confidence.Summary{}, "ExpectedFalse")); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	// Second run refuses to overwrite
	cmd = newRootCmd()
	cmd.SetArgs([]string{"tdc", "--quiet", "--output-dir", out, target})
	if err := cmd.Execute(); !errors.Is(err, ErrOutputExists) {
		t.Errorf("Expected error: %v, got: %v", ErrOutputExists, err)
	}
}

func TestMixMaxCommand(t *testing.T) {
	dir, target := writeTestInputs(t)
	out := filepath.Join(dir, "out")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"mix-max", "--quiet", "--pi-zero", "1", "--fileroot", "mm", "--output-dir", out, target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	rs := readSummary(t, filepath.Join(out, "mm.assign-confidence.summary.json"))
	if rs.Targets != 4 || rs.Decoys != 4 {
		t.Errorf("Expected 4 targets and 4 decoys, got: %d and %d", rs.Targets, rs.Decoys)
	}
	if rs.Pi0 == nil || *rs.Pi0 != 1 {
		t.Errorf("Expected pi0 1, got: %v", rs.Pi0)
	}
	want := []confidence.Level{{FDR: 0.01, Matches: 1}, {FDR: 0.05, Matches: 1}, {FDR: 0.1, Matches: 1}}
	if diff := cmp.Diff(want, rs.Accepted); diff != "" {
		t.Errorf("accepted mismatch (-want +got):\n%s", diff)
	}
	data, err := os.ReadFile(filepath.Join(out, "mm.assign-confidence.target.txt"))
	if err != nil {
		t.Fatalf("Error reading output: %v", err)
	}
	if !strings.Contains(string(data), "mix-max q-value") {
		t.Errorf("Expected mix-max q-value column")
	}
}

func TestMixMaxNeedsDecoyFile(t *testing.T) {
	dir := t.TempDir()
	concat := filepath.Join(dir, "concat.txt")
	if err := os.WriteFile(concat, []byte(testTargets), 0644); err != nil {
		t.Fatalf("Error writing test file: %v", err)
	}
	cmd := newRootCmd()
	cmd.SetArgs([]string{"mix-max", "--quiet", "--output-dir", filepath.Join(dir, "out"), concat})
	if err := cmd.Execute(); !errors.Is(err, ErrMissingDecoyFile) {
		t.Errorf("Expected error: %v, got: %v", ErrMissingDecoyFile, err)
	}
}

func TestParameterFile(t *testing.T) {
	dir, target := writeTestInputs(t)
	paramFile := filepath.Join(dir, "params.yaml")
	content := "estimation-method: tdc\nfileroot: fromfile\noutput-dir: " + filepath.Join(dir, "ignored") + "\n"
	if err := os.WriteFile(paramFile, []byte(content), 0644); err != nil {
		t.Fatalf("Error writing parameter file: %v", err)
	}
	out := filepath.Join(dir, "out")

	// The flag overrides output-dir, fileroot comes from the file
	cmd := newRootCmd()
	cmd.SetArgs([]string{"tdc", "--quiet", "--parameter-file", paramFile, "--output-dir", out, target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "fromfile.assign-confidence.target.txt")); err != nil {
		t.Errorf("Expected output in flag directory with file root from parameter file: %v", err)
	}

	// Method in the file must match the command
	cmd = newRootCmd()
	cmd.SetArgs([]string{"mix-max", "--quiet", "--parameter-file", paramFile, "--output-dir", out, target})
	if err := cmd.Execute(); err == nil {
		t.Errorf("Expected error for conflicting estimation method")
	}
}

func TestPoolMatchesPeptideLevel(t *testing.T) {
	match := func(scan int, decoy bool, s float64) *psm.Match {
		m := &psm.Match{File: "run1.mzML", Scan: scan, Charge: 2, Rank: 1, Decoy: decoy, Candidates: 10}
		m.SetScore(psm.XCorr, s)
		return m
	}
	target := &psm.Collection{}
	target.Add(match(1, false, 10))
	decoy := &psm.Collection{}
	decoy.Add(match(1, true, 12))
	decoy.Add(match(99, true, 8))
	inputs := []inputFiles{{targetPath: "run1.target.txt", decoyPath: "run1.decoy.txt", target: target, decoy: decoy}}

	par := params{Params: config.Default(), verbosity: infoSilent}
	par.PeptideLevel = true
	pooled, err := poolMatches(par, inputs, psm.XCorr, fdr.Descending, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	// Both partners are kept without competition, the unpaired decoy is not
	if pooled.Len() != 2 {
		t.Fatalf("Expected 2 pooled matches, got: %d", pooled.Len())
	}
	for _, m := range pooled.Matches {
		if m.Scan != 1 {
			t.Errorf("Expected only scan 1, got scan %d", m.Scan)
		}
		if m.Candidates != 20 {
			t.Errorf("Expected summed candidate count 20, got: %d", m.Candidates)
		}
	}
	if !pooled.Matches[1].Decoy {
		t.Errorf("Expected decoy partner after its target")
	}
}
