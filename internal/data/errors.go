package data

import "errors"

var (
	// ErrSchema marks a table that lacks the label column or a required
	// metric column, or has unusable cells.
	ErrSchema = errors.New("schema error")

	// ErrInsufficientData marks a class with too few members for
	// stratification or for the oversampler's neighbourhood.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDegenerateInput marks a table with fewer than two classes.
	ErrDegenerateInput = errors.New("degenerate input")
)
