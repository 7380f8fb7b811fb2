package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTable is returned when a page has no mapping table or the table has no rows.
	ErrNoTable = errors.New("no mapping table found")

	// ErrNoRows is returned when a mapping table has a header but no data rows.
	ErrNoRows = errors.New("mapping table has no data rows")

	// ErrNoHeader is returned when a data row appears before any header row.
	// Records built from such a table would have no column names.
	ErrNoHeader = errors.New("data row before any header row")

	// ErrUnexpectedStatus is returned when the documentation server does not answer 200.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrInvalidProxyAddress is returned when a proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")
)

// ExtractionFailure records why a framework produced no data.
// The run continues with the next framework.
type ExtractionFailure struct {
	FrameworkID string
	URL         string
	Err         error
}

// Error implements the error interface.
func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("extraction failed for framework %q (%s): %v", e.FrameworkID, e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ExtractionFailure) Unwrap() error {
	return e.Err
}
