// Package config loads the interface definitions used by the host tools.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"devintrf/core"
	"devintrf/logging"
)

// Interface kinds
const (
	KindI2C  = "i2c"
	KindSPI  = "spi"
	KindUART = "uart"
	KindLink = "link"
)

// Environment overrides
const (
	EnvLogLevel = "DEVINTRF_LOG_LEVEL"
	EnvLogFile  = "DEVINTRF_LOG_FILE"
)

// Config is the complete configuration
type Config struct {
	Logging    logging.Config    `yaml:"logging"`
	Interfaces []InterfaceConfig `yaml:"interfaces"`
}

// InterfaceConfig describes one device transfer interface
type InterfaceConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	// Device is the bus or port name: an I2C bus ("1"), an SPI port
	// ("SPI0.0") or a serial device ("/dev/ttyUSB0")
	Device string `yaml:"device"`
	// Rate in Hz, or baud for serial kinds
	Rate int `yaml:"rate"`
	// MaxRetry is the retry budget of composite transfers, 0 means default
	MaxRetry          int  `yaml:"maxRetry"`
	InterruptPriority int  `yaml:"interruptPriority"`
	StrictCommand     bool `yaml:"strictCommand"`

	SPI  SPIConfig  `yaml:"spi"`
	UART UARTConfig `yaml:"uart"`
	Link LinkConfig `yaml:"link"`
}

// SPIConfig holds SPI settings
type SPIConfig struct {
	Mode int `yaml:"mode"`
	Bits int `yaml:"bits"`
}

// UARTConfig holds serial port settings
type UARTConfig struct {
	ReadTimeoutMs int `yaml:"readTimeoutMs"`
}

// LinkConfig holds protocol link settings
type LinkConfig struct {
	Address uint32 `yaml:"address"`
	// Serial names a uart interface whose port the link runs over.
	// Without it the link opens Device itself.
	Serial  string `yaml:"serial"`
	RxQueue int    `yaml:"rxQueue"`
}

// Load reads a YAML configuration file, applies environment overrides and
// defaults, and validates the result
func Load(path string) (*Config, error) {
	cfg := getDefaultConfig()
	if err := loadFromFile(cfg, path); err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", path)
	}
	return finish(cfg)
}

// Parse is Load from memory
func Parse(data []byte) (*Config, error) {
	cfg := getDefaultConfig()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// getDefaultConfig returns the default configuration
func getDefaultConfig() *Config {
	return &Config{
		Logging: logging.DefaultConfig(),
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if file := os.Getenv(EnvLogFile); file != "" {
		cfg.Logging.File = file
	}
}

func (c *Config) applyDefaults() {
	for i := range c.Interfaces {
		ic := &c.Interfaces[i]
		if ic.MaxRetry == 0 {
			ic.MaxRetry = core.DefaultMaxRetry
		}
		switch ic.Kind {
		case KindI2C:
			if ic.Rate == 0 {
				ic.Rate = 100000
			}
		case KindSPI:
			if ic.Rate == 0 {
				ic.Rate = 1000000
			}
			if ic.SPI.Bits == 0 {
				ic.SPI.Bits = 8
			}
		case KindUART, KindLink:
			if ic.Rate == 0 {
				ic.Rate = 115200
			}
			if ic.UART.ReadTimeoutMs == 0 {
				ic.UART.ReadTimeoutMs = 100
			}
			if ic.Kind == KindLink && ic.Link.RxQueue == 0 {
				ic.Link.RxQueue = 256
			}
		}
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	seen := make(map[string]*InterfaceConfig, len(c.Interfaces))
	for i := range c.Interfaces {
		ic := &c.Interfaces[i]
		if ic.Name == "" {
			return errors.Errorf("interface %d has no name", i)
		}
		if seen[ic.Name] != nil {
			return errors.Errorf("duplicate interface name %q", ic.Name)
		}
		seen[ic.Name] = ic

		if ic.Rate < 0 || ic.MaxRetry < 0 {
			return errors.Errorf("interface %q: rate and maxRetry must not be negative", ic.Name)
		}
		switch ic.Kind {
		case KindI2C:
		case KindSPI:
			if ic.Device == "" {
				return errors.Errorf("interface %q: spi needs a device", ic.Name)
			}
			if ic.SPI.Mode < 0 || ic.SPI.Mode > 3 {
				return errors.Errorf("interface %q: invalid spi mode %d, must be 0-3", ic.Name, ic.SPI.Mode)
			}
			if ic.SPI.Bits < 1 || ic.SPI.Bits > 32 {
				return errors.Errorf("interface %q: invalid spi word size %d", ic.Name, ic.SPI.Bits)
			}
		case KindUART:
			if ic.Device == "" {
				return errors.Errorf("interface %q: uart needs a device", ic.Name)
			}
		case KindLink:
			if ic.Device == "" && ic.Link.Serial == "" {
				return errors.Errorf("interface %q: link needs a device or a serial interface", ic.Name)
			}
		default:
			return errors.Errorf("interface %q: unknown kind %q", ic.Name, ic.Kind)
		}
	}

	// link references resolve against the full set
	for _, ic := range c.Interfaces {
		if ic.Kind != KindLink || ic.Link.Serial == "" {
			continue
		}
		ref := seen[ic.Link.Serial]
		if ref == nil || ref.Kind != KindUART {
			return errors.Errorf("interface %q: %q is not a uart interface", ic.Name, ic.Link.Serial)
		}
	}
	return nil
}

// Interface returns the named interface configuration
func (c *Config) Interface(name string) (InterfaceConfig, bool) {
	for _, ic := range c.Interfaces {
		if ic.Name == name {
			return ic, true
		}
	}
	return InterfaceConfig{}, false
}
