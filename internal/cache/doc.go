// Package cache persists the framework-keyed control mapping between the
// extraction and aggregation phases.
//
// The cache file has the form {framework_id: [{column_name: cell_text}]}.
// Writing it after extraction lets aggregation be re-run without touching
// the network. Files are replaced atomically so a crashed run never leaves a
// truncated cache behind.
package cache
