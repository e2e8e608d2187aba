package sim

import "go.uber.org/zap"

var logger = zap.NewNop().Sugar()

// SetLogger routes the package log streams to l. Pass nil to silence them.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger = zap.NewNop().Sugar()
		return
	}
	logger = l.Named("sim").Sugar()
}

// opsf logs actionable warnings and errors.
func opsf(format string, args ...interface{}) { logger.Warnf(format, args...) }

// diagf logs day-to-day diagnostics.
func diagf(format string, args ...interface{}) { logger.Infof(format, args...) }

// tracef logs per-request telemetry.
func tracef(format string, args ...interface{}) { logger.Debugf(format, args...) }
