// Package confidence assigns q-values and posterior error probabilities to
// target matches, given the matching decoys.
package confidence

import (
	"fmt"

	"github.com/524D/mzconf/internal/fdr"
)

// Method computes q-values for target scores. The slices are sorted in
// place, most significant first, and the result is aligned with targets.
type Method interface {
	Name() string
	// Column is the name of the q-value column written for this method.
	Column() string
	QValues(targets, decoys []float64, dir fdr.Direction) ([]float64, error)
}

type tdcMethod struct{}

func (tdcMethod) Name() string   { return "tdc" }
func (tdcMethod) Column() string { return "tdc q-value" }

func (tdcMethod) QValues(targets, decoys []float64, dir fdr.Direction) ([]float64, error) {
	return fdr.TDC(targets, decoys, dir)
}

type mixMaxMethod struct {
	pi0  fdr.Pi0
	null fdr.NullModel
	// used is the pi0 of the last call, estimated or fixed
	used float64
}

func (*mixMaxMethod) Name() string   { return "mix-max" }
func (*mixMaxMethod) Column() string { return "mix-max q-value" }

func (m *mixMaxMethod) QValues(targets, decoys []float64, dir fdr.Direction) ([]float64, error) {
	pi0 := m.pi0
	if _, ok := pi0.Value(); !ok {
		est, err := fdr.EstimatePi0(targets, decoys, dir, m.null)
		if err != nil {
			return nil, fmt.Errorf("mix-max: %w", err)
		}
		pi0 = fdr.FixedPi0(est)
	}
	m.used, _ = pi0.Value()
	return fdr.MixMax(targets, decoys, dir, pi0, m.null)
}

// NewMethod returns the q-value method called name ("tdc" or "mix-max").
// pi0 and null are only used by mix-max.
func NewMethod(name string, pi0 fdr.Pi0, null fdr.NullModel) (Method, error) {
	switch name {
	case "tdc":
		return tdcMethod{}, nil
	case "mix-max":
		return &mixMaxMethod{pi0: pi0, null: null}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// pi0Of returns the pi0 a method worked with, if it has one.
func pi0Of(m Method) (float64, bool) {
	if mm, ok := m.(*mixMaxMethod); ok {
		return mm.used, true
	}
	return 0, false
}
