// Package report renders aggregated config-rule mappings.
//
// This package contains writers for different output formats:
//   - MarkdownWriter: the browsable mapping document (one section per rule)
//   - JSONWriter: the aggregated output and version files
//   - SimpleWriter: a short plain text run summary for terminal display
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output with MultiWriter.
// Rendering is a pure formatting fold over the entries; all decisions about
// grouping and ordering are made by the aggregate package.
package report
