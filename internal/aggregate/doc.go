// Package aggregate regroups framework-keyed control records by AWS Config
// rule and attaches a reference link to every control.
//
// Frameworks are visited in registry order and records in extraction order,
// so the controls of each rule are ordered the same way on every run. The
// resulting entries are sorted by rule name.
//
// By default a single malformed control ID aborts the run and no partial
// result is returned. WithCollectErrors switches to a mode that skips failing
// controls, keeps every resolvable one and reports all failures together.
package aggregate
