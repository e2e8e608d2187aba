package occmap

import "go.uber.org/zap"

var logger = zap.NewNop().Sugar()

// SetLogger routes the package log streams to l. Pass nil to silence them.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger = zap.NewNop().Sugar()
		return
	}
	logger = l.Named("occmap").Sugar()
}

// opsf logs to the ops stream (actionable warnings, errors).
func opsf(format string, args ...interface{}) { logger.Warnf(format, args...) }

// diagf logs to the diag stream (progress, run summaries).
func diagf(format string, args ...interface{}) { logger.Infof(format, args...) }

// tracef logs to the trace stream (per-cell telemetry).
func tracef(format string, args ...interface{}) { logger.Debugf(format, args...) }
