// Package logging provides structured logging for NUSig.
//
// This package wraps a zap logger with package-level convenience functions.
// Logging is silent unless a level is given with --log-level or the
// NUSIG_LOG_LEVEL environment variable, because the console UI owns the
// terminal. Output goes to a file (default <config dir>/nusig.log).
//
// # Log Levels
//
//   - Debug: notification payload dumps, skipped lines, best-effort failures
//   - Info: connects, disconnects, subscriptions, mirror viewers
//   - Warn: subscribe and write failures, reconnect attempts
//   - Error: startup failures
//
// # Structured Logging
//
//	logging.Info("Subscribed",
//	    zap.Int("rx", 0),
//	    zap.String("uuid", c.UUID),
//	)
//
// # Configuration
//
//	if err := logging.Initialize("debug", "/tmp/nusig.log"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
package logging
