package wakeword

import "errors"

var (
	// ErrModelMissing means the keyword model file does not exist.
	// The process must not start without it.
	ErrModelMissing = errors.New("wakeword: keyword model missing")

	// ErrEngineUnavailable means the detection engine could not be
	// reached. Wake-word listening is disabled but the robot keeps running.
	ErrEngineUnavailable = errors.New("wakeword: engine unavailable")
)
