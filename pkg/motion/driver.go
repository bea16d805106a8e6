package motion

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/teslashibe/nova-guide/internal/log"
)

// ErrClosed is returned after Cleanup.
var ErrClosed = errors.New("motion: driver closed")

// Backend pushes a wheel drive to hardware.
type Backend interface {
	SetDrive(d Drive) error
	Close() error
}

// Driver implements Controller on top of a Backend.
// Redundant stops are not resent.
type Driver struct {
	backend Backend
	logger  *slog.Logger

	mu     sync.Mutex
	last   Drive
	sent   bool
	closed bool
}

// NewDriver wraps backend. The motors are stopped immediately.
func NewDriver(backend Backend, logger *slog.Logger) (*Driver, error) {
	d := &Driver{
		backend: backend,
		logger:  log.OrDefault(logger, "motion"),
	}
	if err := d.Stop(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) move(a Action, speed int) error {
	drive, err := DriveFor(a, speed)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if err := d.backend.SetDrive(drive); err != nil {
		return err
	}
	d.last, d.sent = drive, true
	d.logger.Info("motors driving", "action", a.String(), "speed", ClampSpeed(speed))
	return nil
}

func (d *Driver) MoveForward(speed int) error  { return d.move(MoveForward, speed) }
func (d *Driver) MoveBackward(speed int) error { return d.move(MoveBackward, speed) }
func (d *Driver) TurnLeft(speed int) error     { return d.move(TurnLeft, speed) }
func (d *Driver) TurnRight(speed int) error    { return d.move(TurnRight, speed) }

// Stop implements Controller.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	if d.sent && d.last == Stopped {
		return nil
	}
	if err := d.backend.SetDrive(Stopped); err != nil {
		return err
	}
	d.last, d.sent = Stopped, true
	d.logger.Info("motors stopped")
	return nil
}

// Cleanup implements Controller.
func (d *Driver) Cleanup() error {
	stopErr := d.Stop()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return stopErr
	}
	d.closed = true
	closeErr := d.backend.Close()
	d.logger.Info("motion cleanup complete")
	return errors.Join(stopErr, closeErr)
}

// Current returns the last drive sent.
func (d *Driver) Current() Drive {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

var _ Controller = (*Driver)(nil)
