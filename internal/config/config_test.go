package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-cmp/cmp"
)

func writeParams(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Error writing parameter file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	// Test case 1: Values override the defaults, the rest is kept
	p := Default()
	path := writeParams(t, "estimation-method: mix-max\npi-zero: 0.9\nsidak: true\n")
	if err := Load(path, &p); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	pi0 := 0.9
	want := Default()
	want.Method = "mix-max"
	want.Pi0 = &pi0
	want.Sidak = true
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	// Test case 2: Empty file
	p = Default()
	if err := Load(writeParams(t, ""), &p); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if diff := cmp.Diff(Default(), p); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	// Test case 3: Unknown key
	if err := Load(writeParams(t, "pi0: 0.5\n"), &p); err == nil {
		t.Errorf("Expected error for unknown key, got nil")
	}

	// Test case 4: Missing file
	if err := Load(filepath.Join(t.TempDir(), "none.yaml"), &p); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected error: %v, got: %v", os.ErrNotExist, err)
	}
}

func TestValidate(t *testing.T) {
	tooBig := 1.5
	tests := []struct {
		name    string
		modify  func(p *Params)
		wantErr bool
	}{
		{"defaults", func(p *Params) {}, false},
		{"mix-max", func(p *Params) { p.Method = "mix-max" }, false},
		{"unknown method", func(p *Params) { p.Method = "average-tdc" }, true},
		{"pi0 out of range", func(p *Params) { p.Pi0 = &tooBig }, true},
		{"no decoy prefix", func(p *Params) { p.DecoyPrefix = "" }, true},
		{"no output dir", func(p *Params) { p.OutputDir = "" }, true},
		{"top-match zero", func(p *Params) { p.TopMatch = 0 }, true},
	}
	for _, tc := range tests {
		p := Default()
		tc.modify(&p)
		err := p.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
		var verrs validator.ValidationErrors
		if tc.wantErr && !errors.As(err, &verrs) {
			t.Errorf("%s: Expected validation errors, got: %T", tc.name, err)
		}
	}

	p := Default()
	p.Method = "mix-max"
	p.PeptideLevel = true
	if err := p.Validate(); !errors.Is(err, ErrPeptideLevelMixMax) {
		t.Errorf("Expected error: %v, got: %v", ErrPeptideLevelMixMax, err)
	}
}

func TestPi0Option(t *testing.T) {
	p := Default()
	if _, ok := p.Pi0Option().Value(); ok {
		t.Errorf("Expected unset pi0")
	}
	one := 1.0
	p.Pi0 = &one
	if v, ok := p.Pi0Option().Value(); !ok || v != 1 {
		t.Errorf("Expected pi0 1, got: %f (set %v)", v, ok)
	}
}
