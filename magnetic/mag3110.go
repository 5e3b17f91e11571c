package magnetic

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mklimuk/compass"
)

// DefaultAddress is the fixed 7-bit slave address of the MAG3110.
const DefaultAddress = 0x0E

const (
	regCtrl1 byte = 0x10
	regOutX  byte = 0x01
	regOutY  byte = 0x03
	regOutZ  byte = 0x05
)

// ctrl1Active80Hz selects ODR 80 Hz, oversampling 16, 16-bit reads and active mode.
const ctrl1Active80Hz byte = 0x01

// all three axes are read in one burst, the device auto-increments the register pointer
const sampleLen = 6

type State int

const (
	StateUninitialized State = iota
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Sample holds raw magnetic field counts for the three axes.
type Sample struct {
	X int16 `json:"x" yaml:"x"`
	Y int16 `json:"y" yaml:"y"`
	Z int16 `json:"z" yaml:"z"`
}

type MAG3110Opts struct {
	Address    byte
	Controller string
}

type MAG3110Opt func(*MAG3110Opts)

func WithAddress(addr byte) MAG3110Opt {
	return func(o *MAG3110Opts) {
		o.Address = addr
	}
}

// WithController names the bus controller in setup error messages.
func WithController(id string) MAG3110Opt {
	return func(o *MAG3110Opts) {
		o.Controller = id
	}
}

// MAG3110 represents NXP MAG3110 3-axis digital magnetometer.
// Typical usage:
//
//	s, err := Open(ctx, bus)
//	sample, err := s.Read(ctx)
//
// Values are raw two's-complement counts, no unit conversion is applied.
type MAG3110 struct {
	mx     sync.Mutex
	config MAG3110Opts

	transport compass.I2CBus
	state     State
	buf       []byte
}

func NewMAG3110(trans compass.I2CBus, opts ...MAG3110Opt) *MAG3110 {
	config := MAG3110Opts{
		Address: DefaultAddress,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &MAG3110{
		config:    config,
		transport: trans,
		buf:       make([]byte, sampleLen),
	}
}

// Open creates the device and configures it. The handle is returned only when
// the configuration write succeeded.
func Open(ctx context.Context, trans compass.I2CBus, opts ...MAG3110Opt) (*MAG3110, error) {
	s := NewMAG3110(trans, opts...)
	if err := s.Configure(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MAG3110) Address() byte {
	return s.config.Address
}

func (s *MAG3110) State() State {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.state
}

// Configure writes control register 1. It may only be called once; a failure
// leaves the device permanently unusable. A claimed slave address is reported
// as ErrDeviceUnavailable, any other bus failure as *ConfigError.
func (s *MAG3110) Configure(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	switch s.state {
	case StateReady:
		return nil
	case StateFailed:
		return ErrConfigFailed
	case StateClosed:
		return ErrClosed
	}
	err := s.transport.WriteToAddr(ctx, s.config.Address, []byte{regCtrl1, ctrl1Active80Hz})
	if err != nil {
		s.state = StateFailed
		if errors.Is(err, compass.ErrBusBusy) {
			return s.unavailable(err)
		}
		return &ConfigError{Err: err}
	}
	s.state = StateReady
	slog.Debug("mag3110 configured", "addr", fmt.Sprintf("%#04x", s.config.Address))
	return nil
}

func (s *MAG3110) unavailable(err error) error {
	ctrl := s.config.Controller
	if ctrl == "" {
		ctrl = "default"
	}
	return fmt.Errorf("%w: slave address %#04x on I2C controller %s: %w", ErrDeviceUnavailable, s.config.Address, ctrl, err)
}

// Read fetches one sample in a single write-then-read transaction.
func (s *MAG3110) Read(ctx context.Context) (Sample, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	switch s.state {
	case StateUninitialized:
		return Sample{}, ErrNotConfigured
	case StateFailed:
		return Sample{}, ErrConfigFailed
	case StateClosed:
		return Sample{}, ErrClosed
	}
	err := s.transport.TxAddr(ctx, s.config.Address, []byte{regOutX}, s.buf)
	if err != nil {
		return Sample{}, &ReadError{Err: err}
	}
	return decodeSample(s.buf), nil
}

// Close releases the bus. It waits for an in-flight read to complete; any
// later Read returns ErrClosed. Calling Close more than once is a no-op.
func (s *MAG3110) Close(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	if err := s.transport.Release(ctx); err != nil {
		return fmt.Errorf("mag3110: could not release bus: %w", err)
	}
	return nil
}

// decodeSample reads the axes as little-endian pairs regardless of host byte order.
func decodeSample(buf []byte) Sample {
	return Sample{
		X: int16(binary.LittleEndian.Uint16(buf[0:2])),
		Y: int16(binary.LittleEndian.Uint16(buf[2:4])),
		Z: int16(binary.LittleEndian.Uint16(buf[4:6])),
	}
}
