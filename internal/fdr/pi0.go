package fdr

import "strconv"

// Pi0 is an optional estimate of the fraction of targets drawn from the
// null distribution. The zero value is unset, meaning "estimate it from the
// data". A set value of exactly 1.0 is used as given.
type Pi0 struct {
	value float64
	set   bool
}

// FixedPi0 returns a set Pi0, clamped to [0,1].
func FixedPi0(v float64) Pi0 {
	return Pi0{value: clamp01(v), set: true}
}

// Value returns the fixed value and whether one was set.
func (p Pi0) Value() (float64, bool) {
	return p.value, p.set
}

func (p Pi0) String() string {
	if !p.set {
		return "estimate"
	}
	return strconv.FormatFloat(p.value, 'f', -1, 64)
}
