package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option customises loggers built by New.
type Option func(*options)

type options struct {
	ring *Ring
}

// WithRing tees every entry into the supplied ring buffer in addition to stderr.
func WithRing(r *Ring) Option {
	return func(o *options) {
		o.ring = r
	}
}

// New builds a production logger at the provided level, defaulting to info.
func New(level string, opts ...Option) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var buildOpts []zap.Option
	if o.ring != nil {
		ring := o.ring
		buildOpts = append(buildOpts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, ring.Core(cfg.Level))
		}))
	}

	return cfg.Build(buildOpts...)
}

// ParseLevel converts a textual level, falling back to info for unknown input.
func ParseLevel(level string) zapcore.Level {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return zapcore.InfoLevel
	}
	return zapLevel
}

// WithModule returns a child logger annotated with the module name. A nil parent yields a no-op logger.
func WithModule(log *zap.Logger, module string) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log.With(zap.String("module", module))
}
