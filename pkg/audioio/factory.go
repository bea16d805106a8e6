package audioio

import (
	"fmt"
	"log/slog"

	"github.com/teslashibe/nova-guide/internal/log"
)

// NewMicrophone creates the configured microphone backend.
func NewMicrophone(cfg Config, logger *slog.Logger) (Microphone, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger = log.OrDefault(logger, "audioio")

	logger.Info("creating microphone",
		"backend", cfg.Backend,
		"device", cfg.Device,
		"sample_rate", cfg.SampleRate,
		"frame_ms", cfg.FrameDuration.Milliseconds(),
	)

	switch cfg.Backend {
	case BackendMock:
		return NewMockMicrophone(cfg, logger), nil
	case BackendArecord:
		return NewArecord(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}
