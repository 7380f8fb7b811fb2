// Package search queries aggregated config-rule mappings.
//
// Flatten turns entries into one Hit per control reference. Filter keeps the
// hits that match a free text query, a framework and a control category.
// Text matching ignores case and diacritics (golang.org/x/text/search) and
// requires every query term to appear in at least one searchable field.
package search
