// Package model defines the core data structures used throughout packmap.
//
// This package contains the following main types:
//   - RawRecord and ControlMapping: extracted table rows, keyed by framework
//   - ControlReference and ConfigRuleEntry: controls regrouped by config rule
//   - AggregatedOutput: the persisted JSON form of the aggregation result
//   - VersionStamp: the creation date written next to the aggregated file
//
// The models live in their own package so that extract, aggregate, report
// and database can share them without import cycles.
package model
