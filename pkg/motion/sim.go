package motion

import (
	"log/slog"

	"github.com/teslashibe/nova-guide/internal/log"
)

// SimBackend logs drives instead of moving anything. It is selected when
// no motor controller is configured, e.g. on a development machine.
type SimBackend struct {
	logger *slog.Logger
}

// NewSimBackend returns a logging backend.
func NewSimBackend(logger *slog.Logger) *SimBackend {
	return &SimBackend{logger: log.OrDefault(logger, "motion.sim")}
}

// SetDrive implements Backend.
func (s *SimBackend) SetDrive(d Drive) error {
	s.logger.Debug("sim drive", "left", d.Left, "right", d.Right)
	return nil
}

// Close implements Backend.
func (s *SimBackend) Close() error {
	s.logger.Debug("sim cleanup")
	return nil
}

var _ Backend = (*SimBackend)(nil)
