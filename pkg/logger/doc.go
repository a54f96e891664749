// Package logger provides the structured logging interface used across storysnap.
//
// It wraps zerolog with a small field-oriented API:
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "capture")
//	log.InfoWithFields("Slide saved", map[string]interface{}{"slide": 3})
//
// Console output is written to stderr. When LoggingConfig.File is set, JSON lines
// are appended to that file as well. Tests use NewTestLogger to capture entries
// or NewNopLogger to discard them.
package logger
