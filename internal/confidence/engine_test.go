package confidence

import (
	"errors"
	"testing"

	"github.com/524D/mzconf/internal/fdr"
	"github.com/524D/mzconf/internal/nullmodel"
	"github.com/524D/mzconf/internal/psm"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var approx = cmpopts.EquateApprox(0, 1e-4)

func collection(t psm.ScoreType, decoy bool, seqs []string, scores []float64) *psm.Collection {
	c := &psm.Collection{}
	for i, s := range scores {
		m := &psm.Match{Sequence: seqs[i], Rank: 1, Decoy: decoy, Charge: 2}
		m.SetScore(t, s)
		c.Add(m)
	}
	return c
}

func qvalues(c *psm.Collection) []float64 {
	var q []float64
	for _, m := range c.Matches {
		q = append(q, m.QValue)
	}
	return q
}

func TestAssignTDC(t *testing.T) {
	targets := collection(psm.XCorr, false, []string{"C", "A", "B"}, []float64{6, 10, 8})
	decoys := collection(psm.XCorr, true, []string{"X", "Y", "Z"}, []float64{9, 7, 5})
	method, err := NewMethod("tdc", fdr.Pi0{}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	sum, err := Assign(targets, decoys, Options{
		Method:     method,
		Score:      psm.XCorr,
		Direction:  fdr.Descending,
		PEP:        true,
		Estimator:  nullmodel.New(1),
		PeptideKey: psm.SequenceKey,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if diff := cmp.Diff([]float64{10, 8, 6}, targets.Scores(psm.XCorr)); diff != "" {
		t.Errorf("targets not sorted (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{0, 0.5, 0.6667}, qvalues(targets), approx); diff != "" {
		t.Errorf("q-values mismatch (-want +got):\n%s", diff)
	}
	want := []Level{{0.01, 1}, {0.05, 1}, {0.1, 1}}
	if diff := cmp.Diff(want, sum.Accepted); diff != "" {
		t.Errorf("accepted mismatch (-want +got):\n%s", diff)
	}
	if sum.Pi0 != nil {
		t.Errorf("Expected no pi0 for tdc, got: %f", *sum.Pi0)
	}
	if sum.BestPerPeptide != 3 {
		t.Errorf("Expected 3 best per peptide, got: %d", sum.BestPerPeptide)
	}
	if sum.ExpectedFalse == nil {
		t.Errorf("Expected PEP sum in summary")
	}
	prev := 0.0
	for i, m := range targets.Matches {
		if m.PEP < prev || m.PEP > 1 {
			t.Errorf("PEP out of order at %d: %f after %f", i, m.PEP, prev)
		}
		prev = m.PEP
	}
}

func TestAssignMixMax(t *testing.T) {
	targets := collection(psm.XCorr, false, []string{"A", "B", "C"}, []float64{10, 8, 6})
	decoys := collection(psm.XCorr, true, []string{"X", "Y", "Z"}, []float64{9, 7, 5})
	method, err := NewMethod("mix-max", fdr.FixedPi0(0.5), nullmodel.New(1))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	sum, err := Assign(targets, decoys, Options{Method: method, Score: psm.XCorr, Direction: fdr.Descending})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if diff := cmp.Diff([]float64{0, 0.5, 0.5556}, qvalues(targets), approx); diff != "" {
		t.Errorf("q-values mismatch (-want +got):\n%s", diff)
	}
	if sum.Pi0 == nil || *sum.Pi0 != 0.5 {
		t.Errorf("Expected pi0 0.5 in summary, got: %v", sum.Pi0)
	}
	if method.Column() != "mix-max q-value" {
		t.Errorf("Expected mix-max q-value column, got: %q", method.Column())
	}

	// Unequal sizes are refused
	decoys.Add(decoys.Matches[0])
	_, err = Assign(targets, decoys, Options{Method: method, Score: psm.XCorr, Direction: fdr.Descending})
	if !errors.Is(err, fdr.ErrUnequalPopulations) {
		t.Errorf("Expected error: %v, got: %v", fdr.ErrUnequalPopulations, err)
	}
}

func TestAssignPValuePEP(t *testing.T) {
	targets := collection(psm.ExactPValue, false, []string{"A", "B", "C", "D"}, []float64{0.5, 0.001, 0.02, 0.0001})
	decoys := collection(psm.ExactPValue, true, []string{"W", "X", "Y", "Z"}, []float64{0.3, 0.7, 0.05, 0.9})
	method, _ := NewMethod("tdc", fdr.Pi0{}, nil)
	_, err := Assign(targets, decoys, Options{
		Method:    method,
		Score:     psm.ExactPValue,
		Direction: fdr.Ascending,
		PEP:       true,
		Estimator: nullmodel.New(1),
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if diff := cmp.Diff([]float64{0.0001, 0.001, 0.02, 0.5}, targets.Scores(psm.ExactPValue)); diff != "" {
		t.Errorf("targets not sorted (-want +got):\n%s", diff)
	}
	for i := 1; i < targets.Len(); i++ {
		if targets.Matches[i].PEP < targets.Matches[i-1].PEP {
			t.Errorf("PEP decreases at %d", i)
		}
	}
}

func TestAssignErrors(t *testing.T) {
	if _, err := NewMethod("average-tdc", fdr.Pi0{}, nil); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("Expected error: %v, got: %v", ErrUnknownMethod, err)
	}
	method, _ := NewMethod("tdc", fdr.Pi0{}, nil)
	targets := collection(psm.XCorr, false, []string{"A"}, []float64{1})
	_, err := Assign(targets, &psm.Collection{}, Options{Method: method, Score: psm.XCorr})
	if !errors.Is(err, ErrNoScores) {
		t.Errorf("Expected error: %v, got: %v", ErrNoScores, err)
	}
}

func TestUnpermute(t *testing.T) {
	scores := []float64{3, 9, 1, 9}
	idx := order(scores, fdr.Descending)
	if diff := cmp.Diff([]int{1, 3, 0, 2}, idx); diff != "" {
		t.Errorf("order() mismatch (-want +got):\n%s", diff)
	}
	got := unpermute([]float64{0.1, 0.2, 0.3, 0.4}, idx)
	if diff := cmp.Diff([]float64{0.3, 0.1, 0.4, 0.2}, got); diff != "" {
		t.Errorf("unpermute() mismatch (-want +got):\n%s", diff)
	}
}
