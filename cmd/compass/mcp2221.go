package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/compass"
	"github.com/mklimuk/compass/adapter"
	"github.com/mklimuk/compass/cmd/compass/console"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "inspect the MCP2221 USB-I2C bridge",
	Subcommands: cli.Commands{
		&mcp2221DetectCmd,
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
	},
}

var mcp2221DetectCmd = cli.Command{
	Name: "detect",
	Action: func(c *cli.Context) error {
		devices := adapter.Detect()
		if len(devices) == 0 {
			console.PInfof(console.PictoStop, "no MCP2221 bridge attached")
			return nil
		}
		console.PInfof(console.PictoPlug, "%d MCP2221 bridge(s) attached", len(devices))
		w := tabwriter.NewWriter(os.Stdout, 16, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "PATH\tSERIAL\tVENDOR\tPRODUCT ID\tPRODUCT\n")
		for _, dev := range devices {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%#x\t%#x\t%s\n",
				dev.Path, dev.Serial, dev.VendorID, dev.ProductID, dev.Product)
		}
		_ = w.Flush()
		return nil
	},
}

var mcp2221StatusCmd = cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		a := adapter.NewMCP2221()
		ctx := compass.WithVerbose(context.Background(), c.Bool("verbose"))
		status, err := a.Status(ctx)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return encodeStatus(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current transfer and free the I2C engine",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		if !c.Bool("yes") {
			answer, err := console.YesOrNo("cancel any pending I2C transfer?")
			if err != nil {
				return console.Exit(1, "prompt error: %s", console.Red(err))
			}
			if answer != console.Yes {
				return nil
			}
		}
		a := adapter.NewMCP2221()
		ctx := compass.WithVerbose(context.Background(), c.Bool("verbose"))
		status, err := a.ReleaseBus(ctx)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return encodeStatus(status)
	},
}

func encodeStatus(status *adapter.MCP2221Status) error {
	enc := yaml.NewEncoder(os.Stdout)
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(status); err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return nil
}
