package vm

import "go.uber.org/zap"

var logger = zap.NewNop()

// SetLogger installs a logger for the package. Passing nil restores
// the no-op default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Logger returns the package logger.
func Logger() *zap.Logger {
	return logger
}
