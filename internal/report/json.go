package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/packmap/internal/model"
)

// JSONWriter outputs the aggregated mapping as JSON:
// {config_rule_name: {controls: [...]}} with keys in lexical order.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with four space indentation,
// matching the cache file layout.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "    ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the aggregated entries.
func (w *JSONWriter) Write(doc *Document) (int, error) {
	return w.writeJSON(model.NewAggregatedOutput(doc.Entries))
}

// WriteVersion outputs the version file {"CREATION_DATE": "..."}.
func (w *JSONWriter) WriteVersion(version model.VersionStamp) (int, error) {
	return w.writeJSON(version)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// ReadAggregated decodes a file written by JSONWriter.Write.
func ReadAggregated(r io.Reader) (model.AggregatedOutput, error) {
	var out model.AggregatedOutput
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		out = model.AggregatedOutput{}
	}
	return out, nil
}

// ReadVersion decodes a file written by JSONWriter.WriteVersion.
func ReadVersion(r io.Reader) (model.VersionStamp, error) {
	var v model.VersionStamp
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return model.VersionStamp{}, err
	}
	return v, nil
}
