// Package extract turns conformance pack documentation pages into records.
//
// Extraction happens in two stages:
//
//   - A PageRenderer fetches a page and yields its mapping table as rows of
//     header or data cells. HTMLRenderer is the production implementation: it
//     fetches the AWS documentation page with a retrying HTTP client and walks
//     the HTML with golang.org/x/net/html.
//   - Extract zips every data row against the most recent header row and
//     produces one model.RawRecord per data row.
//
// NewProxyClient builds an HTTP client that dials through a SOCKS5 proxy;
// pass it to HTMLRenderer with WithDoer.
//
// Failures are reported as *ExtractionFailure so the caller can log them and
// skip the framework.
package extract
