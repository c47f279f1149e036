package app

import (
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/talentgate/pkg/logger"
)

// NewLogger builds the application logger. Every entry is also kept in the returned ring so the
// operations dashboard can show recent activity.
func NewLogger(cfg ServerConfig) (*zap.Logger, *logger.Ring, error) {
	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = "info"
	}

	ring := logger.NewRing(cfg.RingBufferSize)
	log, err := logger.New(level, logger.WithRing(ring))
	if err != nil {
		return nil, nil, err
	}
	return log, ring, nil
}
