package logger

import (
	"github.com/rs/zerolog"
)

// LogSlide records the outcome of one capture attempt
func LogSlide(l Logger, index int, accepted bool, path, method, reason string) {
	fields := map[string]interface{}{
		"slide":    index,
		"accepted": accepted,
		"method":   method,
	}
	if path != "" {
		fields["path"] = path
	}

	if accepted {
		l.InfoWithFields("Slide saved", fields)
		return
	}
	fields["reason"] = reason
	l.WarnWithFields("Slide skipped", fields)
}

// LogRunSummary logs the counters a traversal ended with
func LogRunSummary(l Logger, attempted, saved, skipped, interstitials int, reason string) {
	l.WithFields(map[string]interface{}{
		"attempted":     attempted,
		"saved":         saved,
		"skipped":       skipped,
		"interstitials": interstitials,
		"reason":        reason,
	}).Info("Story traversal finished")
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	logger := GetLogger().WithField("component", component)
	if len(config) > 0 {
		logger = logger.WithFields(config)
	}
	logger.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}

func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
