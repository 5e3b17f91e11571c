package i2c

import (
	"context"
	"fmt"
	"sync"

	gobotI2C "gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/compass"
)

var _ compass.I2CBus = &GobotBus{}

// GobotBus drives the I2C bus of a gobot platform adaptor (e.g. NanoPi NEO).
// One generic driver is started lazily per slave address.
type GobotBus struct {
	mx        sync.Mutex
	connector gobotI2C.Connector
	busNr     int
	drivers   map[byte]*gobotI2C.GenericDriver
}

func NewGobotBus(connector gobotI2C.Connector, busNr int) *GobotBus {
	return &GobotBus{
		connector: connector,
		busNr:     busNr,
		drivers:   make(map[byte]*gobotI2C.GenericDriver),
	}
}

func (b *GobotBus) String() string {
	return fmt.Sprintf("gobot-i2c-%d", b.busNr)
}

func (b *GobotBus) driver(address byte) (*gobotI2C.GenericDriver, error) {
	if d, ok := b.drivers[address]; ok {
		return d, nil
	}
	d := gobotI2C.NewGenericDriver(b.connector, fmt.Sprintf("dev-%#04x", address), int(address), func(c gobotI2C.Config) {
		c.SetBus(b.busNr)
	})
	if err := d.Start(); err != nil {
		return nil, fmt.Errorf("could not start driver for %x: %w", address, err)
	}
	b.drivers[address] = d
	return d, nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.driver(address)
	if err != nil {
		return err
	}
	if err := d.Read(buffer); err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.driver(address)
	if err != nil {
		return err
	}
	if err := d.Write(buffer); err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

// TxAddr uses a block read when w is a single register select, otherwise it
// falls back to a write followed by a separate read.
func (b *GobotBus) TxAddr(ctx context.Context, address byte, w, r []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.driver(address)
	if err != nil {
		return err
	}
	if len(w) == 1 {
		if err := d.ReadBlockData(w[0], r); err != nil {
			return fmt.Errorf("could not read block %#04x from i2c bus %x: %w", w[0], address, err)
		}
		return nil
	}
	if err := d.Write(w); err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	if err := d.Read(r); err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

// Release halts the drivers started on this bus.
func (b *GobotBus) Release(ctx context.Context) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var firstErr error
	for addr, d := range b.drivers {
		if err := d.Halt(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("could not halt driver for %x: %w", addr, err)
		}
		delete(b.drivers, addr)
	}
	return firstErr
}
