// Package logger is the logging contract of the controller packages. The
// zerolog implementation lives in infra/logger.
package logger

// Logger is satisfied by infra/logger.ZerologLogger and NopLogger.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw attaches fields to the entry instead of formatting them.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
