package service

import "errors"

// Sentinel errors for the pipeline stages.
var (
	// ErrMissingColumn means an input table lacks a column a stage reads.
	ErrMissingColumn = errors.New("input column missing")
	// ErrNoValuations means no valuation record could be read.
	ErrNoValuations = errors.New("no valuations")
)
