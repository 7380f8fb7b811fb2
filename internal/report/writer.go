package report

import (
	"io"

	"github.com/nao1215/packmap/internal/model"
)

// Document is everything a writer needs to render one aggregation run.
type Document struct {
	// Entries are the config rule entries sorted by rule name.
	Entries []model.ConfigRuleEntry

	// Version is the stamp of the aggregation run.
	Version model.VersionStamp
}

// NewDocument creates a Document from aggregated entries.
func NewDocument(entries []model.ConfigRuleEntry, version model.VersionStamp) *Document {
	return &Document{Entries: entries, Version: version}
}

// Writer defines the interface for report output.
type Writer interface {
	// Write renders the document to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(doc *Document) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the document to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(doc *Document) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(doc)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
