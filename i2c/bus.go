package i2c

import (
	"context"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/mklimuk/compass"
)

// FastMode is the standard I2C fast mode clock.
const FastMode = 400 * physic.KiloHertz

var _ compass.I2CBus = &GenericBus{}

type GenericBus struct {
	bus i2c.BusCloser
}

// Controllers initializes the host drivers and lists the registered I2C buses.
func Controllers() ([]string, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	var names []string
	for _, ref := range i2creg.All() {
		names = append(names, ref.Name)
	}
	return names, nil
}

// NewGenericBus opens the named bus, or the first registered one when dev is
// empty. compass.ErrNoController is returned when the host has no I2C bus at all.
func NewGenericBus(dev string) (*GenericBus, error) {
	names, err := Controllers()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, compass.ErrNoController
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return NewBus(bus), nil
}

// NewBus wraps an already opened periph bus.
func NewBus(bus i2c.BusCloser) *GenericBus {
	return &GenericBus{
		bus: bus,
	}
}

func (b *GenericBus) String() string {
	return b.bus.String()
}

func (b *GenericBus) SetSpeed(f physic.Frequency) error {
	if err := b.bus.SetSpeed(f); err != nil {
		return fmt.Errorf("could not set i2c bus speed to %s: %w", f, err)
	}
	return nil
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) TxAddr(ctx context.Context, address byte, w, r []byte) error {
	err := b.bus.Tx(uint16(address), w, r)
	if err != nil {
		return fmt.Errorf("could not transact on i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}
