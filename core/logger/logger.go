// Package logger defines the logging interface shared by the core packages.
// infra/logger implements it on zerolog.
package logger

// Logger logs at the usual severities. Component names are attached by the
// implementation.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs msg with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
