package fdr

import "errors"

var (
	ErrEmptyPopulation    = errors.New("fdr: cannot compute q-values from an empty population")
	ErrUnequalPopulations = errors.New("fdr: number of targets and decoys differ")
	ErrLengthMismatch     = errors.New("fdr: scores and q-values differ in length")
)
