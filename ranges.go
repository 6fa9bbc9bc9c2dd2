package main

import (
	"errors"
	"regexp"
	"strconv"
)

var ErrRangeSpec = errors.New("invalid range specified")

var (
	intRangeRe     = regexp.MustCompile(`\s*(\-?\d*):(\-?\d*)`)
	float64RangeRe = regexp.MustCompile(`\s*([-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?):([-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?)`)
)

// Parse string like "-12:6" into 2 values, -12 and 6
// Parameters min and max are the "default" min/max values,
// when a value is not specified (e.g. "-12:"), the default is assigned.
// A single number "7" selects just that value.
func parseIntRange(r string, min int, max int) (int, int, error) {
	if _, err := strconv.Atoi(r); err == nil {
		r = r + ":" + r
	}
	m := intRangeRe.FindStringSubmatch(r)
	minOut := min
	maxOut := max
	if len(m) >= 2 && m[1] != "" {
		minOut, _ = strconv.Atoi(m[1])
		if minOut < min {
			minOut = min
		}
	}
	if len(m) >= 3 && m[2] != "" {
		maxOut, _ = strconv.Atoi(m[2])
		if maxOut > max {
			maxOut = max
		}
	}
	var err error
	if minOut > maxOut {
		err = ErrRangeSpec
		minOut = maxOut
	}
	return minOut, maxOut, err
}

// Parse string like "0:1e-2" into 2 values, 0.0 and 0.01
// Parameters min and max are the "default" min/max values,
// when a value is not specified (e.g. ":0.05"), the default is assigned
func parseFloat64Range(r string, min float64, max float64) (
	float64, float64, error) {
	m := float64RangeRe.FindStringSubmatch(r)
	minOut := min
	maxOut := max
	if len(m) >= 2 && m[1] != "" {
		minOut, _ = strconv.ParseFloat(m[1], 64)
		if minOut < min {
			minOut = min
		}
	}
	if len(m) >= 4 && m[3] != "" {
		maxOut, _ = strconv.ParseFloat(m[3], 64)
		if maxOut > max {
			maxOut = max
		}
	}
	var err error
	if minOut > maxOut {
		err = ErrRangeSpec
		minOut = maxOut
	}
	return minOut, maxOut, err
}
