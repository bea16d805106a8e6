// Package motion drives the two wheel motors.
//
// Controller is the actuation contract the orchestrator depends on. Drivers
// translate an Action and speed into a differential Drive (signed duty cycle
// per wheel) and push it to hardware. Speed is always clamped to [0, 100]
// before use and Stop is idempotent.
package motion

import "fmt"

// Speed limits (percent duty cycle).
const (
	MinSpeed     = 0
	MaxSpeed     = 100
	DefaultSpeed = 50
)

// Action is a motion primitive.
type Action int

const (
	MoveForward Action = iota + 1
	MoveBackward
	TurnLeft
	TurnRight
)

func (a Action) String() string {
	switch a {
	case MoveForward:
		return "move_forward"
	case MoveBackward:
		return "move_backward"
	case TurnLeft:
		return "turn_left"
	case TurnRight:
		return "turn_right"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Controller is the actuation interface.
type Controller interface {
	MoveForward(speed int) error
	MoveBackward(speed int) error
	TurnLeft(speed int) error
	TurnRight(speed int) error

	// Stop halts both motors. Safe to call repeatedly.
	Stop() error

	// Cleanup stops the motors and releases the hardware.
	Cleanup() error
}

// ClampSpeed restricts speed to [MinSpeed, MaxSpeed].
func ClampSpeed(speed int) int {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

// Drive is a signed duty cycle per wheel, -100..100.
type Drive struct {
	Left  int
	Right int
}

// Stopped is the zero drive.
var Stopped = Drive{}

// DriveFor maps an action to wheel duties. Turns spin in place: the
// outer wheel drives forward and the inner wheel backward.
func DriveFor(a Action, speed int) (Drive, error) {
	s := ClampSpeed(speed)
	switch a {
	case MoveForward:
		return Drive{Left: s, Right: s}, nil
	case MoveBackward:
		return Drive{Left: -s, Right: -s}, nil
	case TurnLeft:
		return Drive{Left: -s, Right: s}, nil
	case TurnRight:
		return Drive{Left: s, Right: -s}, nil
	default:
		return Stopped, fmt.Errorf("motion: unknown action %v", a)
	}
}

// Apply dispatches an action to the matching Controller method.
func Apply(c Controller, a Action, speed int) error {
	switch a {
	case MoveForward:
		return c.MoveForward(speed)
	case MoveBackward:
		return c.MoveBackward(speed)
	case TurnLeft:
		return c.TurnLeft(speed)
	case TurnRight:
		return c.TurnRight(speed)
	default:
		return fmt.Errorf("motion: unknown action %v", a)
	}
}
