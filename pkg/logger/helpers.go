package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogBatch logs a batch of records committed to the corpus
func LogBatch(l Logger, source string, size, total int, cursor string) {
	l.WithFields(map[string]interface{}{
		"source": source,
		"batch":  size,
		"total":  total,
		"cursor": cursor,
	}).Info(fmt.Sprintf("Captured %d posts", size))
}

// LogRateLimit logs a rate limited fetch and the delay about to be slept
func LogRateLimit(l Logger, delay time.Duration, cursor string) {
	l.WithFields(map[string]interface{}{
		"delay":  delay,
		"cursor": cursor,
		"action": "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogStateTransition logs a session state change
func LogStateTransition(l Logger, from, to string, reason string) {
	l.WithFields(map[string]interface{}{
		"from":   from,
		"to":     to,
		"reason": reason,
	}).Info("Session state changed")
}

// LogProgress logs run totals against the target
func LogProgress(l Logger, captured, target int) {
	percentage := 0.0
	if target > 0 {
		percentage = float64(captured) / float64(target) * 100
	}

	l.WithFields(map[string]interface{}{
		"captured":   captured,
		"target":     target,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Info("Harvest progress")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	cl := l.WithField("component", component)
	if len(settings) > 0 {
		cl = cl.WithFields(settings)
	}
	cl.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
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
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
