// Package config holds the run parameters. They are read from an optional
// YAML parameter file, then overridden from the command line.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/524D/mzconf/internal/fdr"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var ErrPeptideLevelMixMax = errors.New("peptide-level filtering is only available with tdc")

// Params are the parameters of one run.
type Params struct {
	Method string `yaml:"estimation-method" validate:"oneof=tdc mix-max"`
	// Score column or mzIdentML CV term; empty means detect
	Score       string   `yaml:"score"`
	Pi0         *float64 `yaml:"pi-zero" validate:"omitempty,gte=0,lte=1"`
	DecoyPrefix string   `yaml:"decoy-prefix" validate:"required"`
	// Matches ranked below TopMatch are skipped
	TopMatch int `yaml:"top-match" validate:"gte=1"`

	PeptideLevel            bool `yaml:"peptide-level"`
	CombineChargeStates     bool `yaml:"combine-charge-states"`
	CombineModifiedPeptides bool `yaml:"combine-modified-peptides"`
	Sidak                   bool `yaml:"sidak"`
	PEP                     bool `yaml:"pep"`

	Seed      uint64 `yaml:"seed"`
	OutputDir string `yaml:"output-dir" validate:"required"`
	FileRoot  string `yaml:"fileroot"`
	Overwrite bool   `yaml:"overwrite"`
}

// Default returns the parameters used when nothing is configured.
func Default() Params {
	return Params{
		Method:      "tdc",
		DecoyPrefix: "decoy_",
		TopMatch:    1,
		Seed:        1,
		OutputDir:   "mzconf-output",
	}
}

// Load overlays the YAML parameter file at path onto p. Unknown keys are an
// error.
func Load(path string, p *Params) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading parameter file %s: %w", path, err)
	}
	defer f.Close()
	d := yaml.NewDecoder(f)
	d.KnownFields(true)
	if err := d.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing parameter file %s: %w", path, err)
	}
	return nil
}

// Validate checks p.
func (p *Params) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return err
	}
	if p.PeptideLevel && p.Method != "tdc" {
		return ErrPeptideLevelMixMax
	}
	return nil
}

// Pi0Option returns the configured pi0, unset if none was given.
func (p *Params) Pi0Option() fdr.Pi0 {
	if p.Pi0 == nil {
		return fdr.Pi0{}
	}
	return fdr.FixedPi0(*p.Pi0)
}
