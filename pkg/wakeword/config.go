package wakeword

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/audioio"
)

// Config holds wake-word settings.
type Config struct {
	// Enabled turns wake-word listening on.
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the detection server websocket.
	Endpoint string `mapstructure:"endpoint"`

	// ModelPath is the keyword model. It must exist.
	ModelPath string `mapstructure:"model_path"`

	// Keyword is the trigger phrase.
	Keyword string `mapstructure:"keyword"`

	// Sensitivity is the detection threshold (0.0-1.0).
	Sensitivity float64 `mapstructure:"sensitivity"`

	// DialTimeout bounds connecting to the server.
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		Endpoint:    "ws://127.0.0.1:8765/ws/wakeword",
		ModelPath:   "models/nova.ppn",
		Keyword:     "nova",
		Sensitivity: 0.95,
		DialTimeout: 3 * time.Second,
	}
}

// CheckModel fails with ErrModelMissing when the model file is absent.
func CheckModel(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no model path configured", ErrModelMissing)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrModelMissing, path)
		}
		return fmt.Errorf("wakeword: stat model: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrModelMissing, path)
	}
	return nil
}

// Open builds the engine. A missing model is a hard failure and returns
// ErrModelMissing with a nil engine. When the engine cannot be reached it
// returns Disabled together with an ErrEngineUnavailable error, which the
// caller should log once and otherwise ignore.
func Open(ctx context.Context, cfg Config, mic audioio.Microphone, logger *slog.Logger) (Engine, error) {
	logger = log.OrDefault(logger, "wakeword")

	if err := CheckModel(cfg.ModelPath); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		logger.Info("wake word disabled by configuration")
		return Disabled{}, nil
	}

	engine := NewWSEngine(cfg, mic, logger)
	if err := engine.Probe(ctx); err != nil {
		return Disabled{}, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	logger.Info("wake word engine ready",
		"endpoint", cfg.Endpoint,
		"keyword", cfg.Keyword,
		"sensitivity", cfg.Sensitivity,
	)
	return engine, nil
}
