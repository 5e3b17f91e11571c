package magnetic

import (
	"errors"
	"fmt"

	"github.com/mklimuk/compass"
)

var (
	ErrNoController      = compass.ErrNoController
	ErrDeviceUnavailable = errors.New("device is currently in use by another application")
	ErrNotConfigured     = errors.New("mag3110: device not configured")
	ErrConfigFailed      = errors.New("mag3110: device configuration failed earlier")
	ErrClosed            = errors.New("mag3110: device closed")
)

// ConfigError is returned when the control register write fails.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("failed to communicate with device: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ReadError is returned when a single sample transaction fails. The device
// stays usable.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("mag3110: read failed: %v", e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
