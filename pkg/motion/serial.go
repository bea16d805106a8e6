package motion

import (
	"fmt"
	"io"
	"strings"

	"go.bug.st/serial"
)

// Port is the minimal serial port surface. Satisfied by serial.Port and by
// in-memory fakes in tests.
type Port interface {
	io.Writer
	io.Closer
}

// SerialOptions describes the link to the motor microcontroller.
type SerialOptions struct {
	Path     string `mapstructure:"port" json:"port"`
	BaudRate int    `mapstructure:"baud_rate" json:"baud_rate"`
}

// Mode converts the options into a serial.Mode, applying defaults.
func (o SerialOptions) Mode() *serial.Mode {
	baud := o.BaudRate
	if baud <= 0 {
		baud = 115200
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// SerialBackend speaks a line protocol to an L298N bridge controller:
//
//	D <left> <right>\n   signed duty -100..100 per wheel
//	X\n                  release the bridge
type SerialBackend struct {
	port Port
}

// OpenSerial opens the serial port described by opts.
func OpenSerial(opts SerialOptions) (*SerialBackend, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("motion: serial port path required")
	}
	port, err := serial.Open(opts.Path, opts.Mode())
	if err != nil {
		return nil, fmt.Errorf("motion: open %s: %w", opts.Path, err)
	}
	return NewSerialBackend(port), nil
}

// NewSerialBackend wraps an already open port.
func NewSerialBackend(port Port) *SerialBackend {
	return &SerialBackend{port: port}
}

// EncodeDrive renders one drive command line.
func EncodeDrive(d Drive) string {
	return fmt.Sprintf("D %d %d\n", d.Left, d.Right)
}

// SetDrive implements Backend.
func (s *SerialBackend) SetDrive(d Drive) error {
	if _, err := io.WriteString(s.port, EncodeDrive(d)); err != nil {
		return fmt.Errorf("motion: write drive: %w", err)
	}
	return nil
}

// Close implements Backend.
func (s *SerialBackend) Close() error {
	_, werr := io.WriteString(s.port, "X\n")
	cerr := s.port.Close()
	if werr != nil {
		return fmt.Errorf("motion: release bridge: %w", werr)
	}
	return cerr
}

var _ Backend = (*SerialBackend)(nil)
