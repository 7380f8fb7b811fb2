// Package main provides the entry point for the packmap CLI.
//
// packmap scrapes the AWS Config conformance pack pages, regroups the
// compliance controls of every supported framework by AWS Config rule, and
// publishes the result as JSON and as a browsable Markdown document.
//
// Usage:
//
//	packmap run
//	packmap scrape
//	packmap aggregate
//	packmap render
//
// See --help for all available options.
package main

// main is the entry point for packmap.
func main() {
	Execute()
}
