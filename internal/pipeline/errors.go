package pipeline

import "errors"

var (
	// ErrNoData is returned when no framework produced any records.
	ErrNoData = errors.New("no framework produced any data")

	// ErrNoMapping is returned when a step needs a mapping that no earlier step produced.
	ErrNoMapping = errors.New("no control mapping to process")

	// ErrNoResult is returned when a step needs an aggregation result that is missing.
	ErrNoResult = errors.New("no aggregation result to render")
)
