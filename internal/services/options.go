package services

import (
	"time"

	"go.uber.org/zap"
)

// Option customises a service at construction time.
type Option func(*serviceOptions)

type serviceOptions struct {
	log *zap.Logger
	now func() time.Time
}

// WithLogger injects the logger a service reports through. Services default to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *serviceOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClock overrides the clock used for timestamps written by a service.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(module string, opts []Option) serviceOptions {
	o := serviceOptions{
		log: zap.NewNop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.With(zap.String("module", module))
	return o
}
