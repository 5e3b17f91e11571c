package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/compass"
	"github.com/mklimuk/compass/cmd/compass/console"
	"github.com/mklimuk/compass/config"
	"github.com/mklimuk/compass/monitor"
)

var watchCmd = cli.Command{
	Name:  "watch",
	Usage: "sample the magnetometer periodically until interrupted",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "mqtt-broker",
			Usage: "publish samples to this MQTT broker, e.g. tcp://localhost:1883",
		},
		&cli.StringFlag{
			Name:  "mqtt-topic",
			Usage: "MQTT topic for samples",
		},
	}, busFlags...),
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		if c.IsSet("mqtt-broker") {
			if cfg.MQTT == nil {
				cfg.MQTT = &config.MQTT{ClientID: "compass", Topic: "compass/mag3110"}
			}
			cfg.MQTT.Broker = c.String("mqtt-broker")
		}
		if c.IsSet("mqtt-topic") && cfg.MQTT != nil {
			cfg.MQTT.Topic = c.String("mqtt-topic")
		}

		ctx, stop := signal.NotifyContext(compass.WithVerbose(context.Background(), c.Bool("verbose")), os.Interrupt, syscall.SIGTERM)
		defer stop()

		dev, closeDev, err := openCompass(ctx, cfg)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		defer closeDev()

		sinks := []monitor.Sink{monitor.SinkFunc(renderConsole)}
		if cfg.MQTT != nil && cfg.MQTT.Broker != "" {
			client, err := monitor.DialMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID)
			if err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
			defer client.Disconnect(250)
			sinks = append(sinks, monitor.NewMQTTSink(client, cfg.MQTT.Topic, cfg.MQTT.QoS))
			slog.Info("publishing samples", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
		}

		console.PInfof(console.PictoCompass, "%s", console.Cyan(monitor.AddressLine(dev.Address())))
		console.Infof("sampling every %s, press Ctrl+C to stop", cfg.Interval)
		sampler := monitor.NewSampler(dev, monitor.WithInterval(cfg.Interval))
		go func() {
			_ = sampler.Run(ctx)
		}()
		err = monitor.Dispatch(ctx, dev.Address(), sampler.Readings(), sinks...)
		if err != nil && !errors.Is(err, context.Canceled) {
			return console.Exit(1, "%s", console.Red(err))
		}
		if n := sampler.Skipped(); n > 0 {
			console.Warnf("%d ticks skipped while a read was in flight", n)
		}
		return nil
	},
}

func renderConsole(ctx context.Context, addr byte, r monitor.Reading) error {
	printDisplay(monitor.Format(addr, r), r.Err != nil)
	return nil
}
