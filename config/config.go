package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AdapterGeneric = "generic"
	AdapterNanoPi  = "nanopi"
	AdapterMCP2221 = "mcp2221"
)

// Config holds the compass application settings.
type Config struct {
	Adapter  string        `yaml:"adapter"`
	Device   string        `yaml:"device"`
	Bus      int           `yaml:"bus"`
	Address  uint8         `yaml:"address"`
	Speed    int           `yaml:"speed"`
	Interval time.Duration `yaml:"interval"`
	MQTT     *MQTT         `yaml:"mqtt,omitempty"`
}

// MQTT enables publishing of samples when Broker is set.
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientId"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

func Default() Config {
	return Config{
		Adapter:  AdapterGeneric,
		Bus:      2,
		Address:  0x0E,
		Speed:    400_000,
		Interval: 300 * time.Millisecond,
	}
}

// Load reads a YAML file on top of the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	if cfg.MQTT != nil {
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "compass"
		}
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = "compass/mag3110"
		}
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	switch c.Adapter {
	case AdapterGeneric, AdapterNanoPi, AdapterMCP2221:
	default:
		errs = append(errs, fmt.Errorf("unknown adapter %q", c.Adapter))
	}
	if c.Address == 0 || c.Address > 0x7F {
		errs = append(errs, fmt.Errorf("invalid 7-bit address %#x", c.Address))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if c.Speed <= 0 {
		errs = append(errs, fmt.Errorf("speed must be positive, got %d", c.Speed))
	}
	if c.MQTT != nil && c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("invalid mqtt qos %d", c.MQTT.QoS))
	}
	return errors.Join(errs...)
}
