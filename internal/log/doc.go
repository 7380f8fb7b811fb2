// Package log builds the slog loggers used by packmap.
//
// TruncatingHandler wraps any slog.Handler and
//   - shortens long string attributes (scraped cell text, control
//     descriptions) so every log line stays readable
//   - masks attributes whose key names a credential, such as an
//     Authorization header configured for the documentation mirror
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Info("framework extracted", "framework", id, "records", n)
//	slog.SetDefault(logger)
//
// Only the CLI sets the default logger; library packages receive a
// *slog.Logger through their options.
package log
