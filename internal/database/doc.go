// Package database provides SQLite-based run history for packmap.
//
// HistoryDB stores:
//   - Snapshots of extracted control mappings, keyed by content fingerprint
//   - One row per pipeline run with its outcome and entry counts
//
// Snapshots let a later run aggregate an older extraction again without
// scraping, and the run log answers "when did the mapping last change".
// The database is a single CGO-free file (modernc.org/sqlite) opened in WAL
// mode.
package database
