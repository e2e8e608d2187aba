package store

import "go.uber.org/zap"

var logger = zap.NewNop().Sugar()

// SetLogger routes the package log streams to l. Pass nil to silence them.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger = zap.NewNop().Sugar()
		return
	}
	logger = l.Named("store").Sugar()
}

func opsf(format string, args ...interface{})  { logger.Warnf(format, args...) }
func diagf(format string, args ...interface{}) { logger.Infof(format, args...) }

// migrateLogger implements migrate.Logger on the diag stream.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	diagf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}
