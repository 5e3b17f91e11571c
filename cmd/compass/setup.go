package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/compass"
	"github.com/mklimuk/compass/adapter"
	"github.com/mklimuk/compass/config"
	"github.com/mklimuk/compass/i2c"
	"github.com/mklimuk/compass/magnetic"
)

// busFlags are shared by every command talking to the magnetometer.
var busFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "adapter",
		Aliases: []string{"a"},
		Usage:   "bus adapter: generic, nanopi or mcp2221",
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Usage:   "periph bus name, e.g. /dev/i2c-1 (generic adapter)",
	},
	&cli.IntFlag{
		Name:  "bus",
		Usage: "bus number (nanopi adapter)",
	},
	&cli.DurationFlag{
		Name:    "interval",
		Aliases: []string{"i"},
		Usage:   "sampling interval",
	},
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("adapter") {
		cfg.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		cfg.Device = c.String("device")
	}
	if c.IsSet("bus") {
		cfg.Bus = c.Int("bus")
	}
	if c.IsSet("interval") {
		cfg.Interval = c.Duration("interval")
	}
	return cfg, cfg.Validate()
}

// openBus acquires the transport selected in cfg. The returned release
// function closes the underlying adapter.
func openBus(ctx context.Context, cfg config.Config) (compass.I2CBus, string, func(), error) {
	switch cfg.Adapter {
	case config.AdapterMCP2221:
		a := adapter.NewMCP2221()
		if err := a.Init(); err != nil {
			return nil, "", nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		if err := a.SetSpeed(ctx, cfg.Speed); err != nil {
			return nil, "", nil, fmt.Errorf("could not set bus speed: %w", err)
		}
		return a, a.String(), func() {}, nil
	case config.AdapterNanoPi:
		npi := nanopi.NewNeoAdaptor()
		if err := npi.I2cBusAdaptor.Connect(); err != nil {
			return nil, "", nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		slog.Debug("bus speed is fixed by the platform driver", "requested", cfg.Speed)
		bus := i2c.NewGobotBus(npi, cfg.Bus)
		return bus, bus.String(), func() {
			if err := npi.I2cBusAdaptor.Finalize(); err != nil {
				slog.Error("could not finalize adaptor", "error", err)
			}
		}, nil
	default:
		bus, err := i2c.NewGenericBus(cfg.Device)
		if err != nil {
			return nil, "", nil, err
		}
		if err := bus.SetSpeed(physic.Frequency(cfg.Speed) * physic.Hertz); err != nil {
			slog.Warn("could not switch bus speed", "error", err)
		}
		return bus, bus.String(), func() {
			if err := bus.Close(); err != nil {
				slog.Error("error closing bus", "error", err)
			}
		}, nil
	}
}

// openCompass runs the setup sequence: bus acquisition then device configuration.
func openCompass(ctx context.Context, cfg config.Config) (*magnetic.MAG3110, func(), error) {
	bus, controller, release, err := openBus(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	dev, err := magnetic.Open(ctx, bus, magnetic.WithAddress(cfg.Address), magnetic.WithController(controller))
	if err != nil {
		release()
		return nil, nil, err
	}
	slog.Info("compass configured", "controller", controller, "addr", fmt.Sprintf("%#04x", dev.Address()))
	return dev, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := dev.Close(ctx); err != nil {
			slog.Error("could not close compass", "error", err)
		}
		release()
	}, nil
}
