// Package logging provides structured logging for the statblock service.
//
// The package wraps log/slog with:
//   - JSON, text and console output formats
//   - context fields for parse runs (run ID, request ID, source, schema
//     version) prepended by the *Context methods
//   - credential redaction for git tokens and passwords in URLs
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//
//	ctx = logging.WithRunID(ctx, id)
//	logger.InfoContext(ctx, "statblock parsed", "name", name)
//
// Library packages accept a plain *slog.Logger; pass logger.Slog() to them.
package logging
