package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is a prefixed structured logger embedded by components.
type Log interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Panic(msg string, fields ...zap.Field)
}

type prefixLog struct {
	prefix string
}

// NewLog returns a Log whose entries are named after prefix. The underlying
// zap logger is resolved on every call so InitWithConfig applies to logs
// created before it ran.
func NewLog(prefix string) Log {
	return &prefixLog{prefix: prefix}
}

func (p *prefixLog) named() *zap.Logger {
	return logger.logger.Named(p.prefix)
}

func (p *prefixLog) Debug(msg string, fields ...zap.Field) {
	if logger.Level <= zapcore.DebugLevel {
		p.named().Debug(msg, fields...)
	}
}

func (p *prefixLog) Info(msg string, fields ...zap.Field) {
	if logger.Level <= zapcore.InfoLevel {
		p.named().Info(msg, fields...)
	}
}

func (p *prefixLog) Warn(msg string, fields ...zap.Field) {
	if logger.Level <= zapcore.WarnLevel {
		p.named().Warn(msg, fields...)
	}
}

func (p *prefixLog) Error(msg string, fields ...zap.Field) {
	p.named().Error(msg, fields...)
}

func (p *prefixLog) Panic(msg string, fields ...zap.Field) {
	p.named().Panic(msg, fields...)
}
