package stt

import (
	"context"
	"log/slog"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/audioio"
)

// Open builds the configured interpreter. An unreachable server is not
// fatal: it logs once and returns Disabled.
func Open(ctx context.Context, cfg Config, mic audioio.Microphone, logger *slog.Logger) Interpreter {
	logger = log.OrDefault(logger, "stt")
	if !cfg.Enabled {
		logger.Info("command recognition disabled by configuration")
		return Disabled{}
	}
	v := NewVosk(cfg, mic, logger)
	if err := v.Probe(ctx); err != nil {
		logger.Warn("speech recognizer unavailable, commands disabled", "error", err)
		return Disabled{}
	}
	logger.Info("speech recognizer ready", "endpoint", cfg.Endpoint)
	return v
}
