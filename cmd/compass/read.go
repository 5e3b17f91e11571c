package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/compass"
	"github.com/mklimuk/compass/cmd/compass/console"
	"github.com/mklimuk/compass/monitor"
)

var readCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Usage:   "read a single sample",
	Flags:   busFlags,
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		ctx := compass.WithVerbose(context.Background(), c.Bool("verbose"))
		dev, closeDev, err := openCompass(ctx, cfg)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		defer closeDev()

		sample, err := dev.Read(ctx)
		d := monitor.Format(dev.Address(), monitor.Reading{Sample: sample, Err: err})
		printDisplay(d, err != nil)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		return nil
	},
}

func printDisplay(d monitor.Display, failed bool) {
	status := console.Green(d.Status)
	if failed {
		status = console.Red(d.Status)
	}
	console.PInfof(console.PictoMagnet, "%s | %s | %s | %s", console.White(d.X), console.White(d.Y), console.White(d.Z), status)
}
