package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/packmap/internal/framework"
	"github.com/nao1215/packmap/internal/model"
)

// SimpleWriter outputs a short plain text summary of an aggregation run for
// terminal display.
type SimpleWriter struct {
	baseWriter

	registry *framework.Registry

	// verbose lists every config rule with its control count.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with one line per config rule.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithSimpleRegistry sets the registry used for framework display names.
func WithSimpleRegistry(r *framework.Registry) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.registry = r
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}
	if w.registry == nil {
		w.registry = framework.DefaultRegistry()
	}

	return w
}

// Write outputs the run summary.
func (w *SimpleWriter) Write(doc *Document) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, doc)
	w.writeFrameworks(&sb, doc)
	if w.verbose {
		w.writeRules(&sb, doc)
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes totals.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, doc *Document) {
	manual := 0
	for _, e := range doc.Entries {
		if model.IsManualProcessRule(e.ConfigRuleName) {
			manual++
		}
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    CONFORMANCE PACK MAPPING SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Created:        %s\n", doc.Version.String()))
	sb.WriteString(fmt.Sprintf("Config Rules:   %d\n", len(doc.Entries)))
	sb.WriteString(fmt.Sprintf("Manual Checks:  %d\n", manual))
	sb.WriteString(fmt.Sprintf("Controls:       %d\n", model.ControlCount(doc.Entries)))
	sb.WriteString("\n")
}

// writeFrameworks writes control counts per framework in registry order.
func (w *SimpleWriter) writeFrameworks(sb *strings.Builder, doc *Document) {
	counts := make(map[string]int)
	for _, e := range doc.Entries {
		for _, c := range e.Controls {
			counts[c.FrameworkID]++
		}
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FRAMEWORKS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, fw := range w.registry.All() {
		if counts[fw.ID] == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-45s %6d\n", fw.DisplayName, counts[fw.ID]))
	}
	sb.WriteString("\n")
}

// writeRules writes one line per config rule.
func (w *SimpleWriter) writeRules(sb *strings.Builder, doc *Document) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CONFIG RULES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, e := range doc.Entries {
		sb.WriteString(fmt.Sprintf("  [%3d] %s\n", len(e.Controls), e.ConfigRuleName))
	}
	sb.WriteString("\n")
}
