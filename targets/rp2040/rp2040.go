//go:build rp2040 || rp2350

// Package rp2040 binds the RP2040/RP2350 I2C and SPI peripherals to device
// transfer interfaces.
package rp2040

import (
	"machine"

	"github.com/pkg/errors"

	"devintrf/bus"
	"devintrf/core"
)

// SPIPins selects the controller and GPIO pins of an SPI bus
type SPIPins struct {
	SPI  *machine.SPI
	SCK  machine.Pin
	MOSI machine.Pin
	MISO machine.Pin
}

// SPIBuses are the pin groups the RP2040 routes to its two SPI controllers
var SPIBuses = map[string]SPIPins{
	"spi0a": {machine.SPI0, machine.GPIO2, machine.GPIO3, machine.GPIO0},
	"spi0b": {machine.SPI0, machine.GPIO6, machine.GPIO7, machine.GPIO4},
	"spi0c": {machine.SPI0, machine.GPIO18, machine.GPIO19, machine.GPIO16},
	"spi0d": {machine.SPI0, machine.GPIO22, machine.GPIO23, machine.GPIO20},
	"spi0e": {machine.SPI0, machine.GPIO2, machine.GPIO3, machine.GPIO4},
	"spi1a": {machine.SPI1, machine.GPIO10, machine.GPIO11, machine.GPIO8},
	"spi1b": {machine.SPI1, machine.GPIO14, machine.GPIO15, machine.GPIO12},
	"spi1c": {machine.SPI1, machine.GPIO26, machine.GPIO27, machine.GPIO24},
	"spi1d": {machine.SPI1, machine.GPIO10, machine.GPIO11, machine.GPIO12},
}

// I2C configures i2c at rate Hz on its default pins and returns an
// interface over it. The rate is rounded to the nearest standard speed.
// Device addresses are the 7 or 10 bit bus addresses.
func I2C(i2c *machine.I2C, rate uint32, opts ...core.Option) (*core.Interface, error) {
	if i2c == nil {
		return nil, errors.New("nil I2C bus")
	}
	if err := i2c.Configure(machine.I2CConfig{Frequency: rate}); err != nil {
		return nil, errors.Wrap(err, "configure I2C")
	}
	b := bus.NewI2C(i2c, nil)
	b.SetRate(int(rate))
	return core.New(b, opts...), nil
}

// SPI configures the named pin group in mode 0 at rate Hz and returns an
// interface over it. cs is driven low while a transfer is active; the
// device address passed to the interface is ignored.
func SPI(name string, rate uint32, cs machine.Pin, opts ...core.Option) (*core.Interface, error) {
	pins, ok := SPIBuses[name]
	if !ok {
		return nil, errors.Errorf("unknown SPI bus %q", name)
	}
	err := pins.SPI.Configure(machine.SPIConfig{
		Frequency: rate,
		SCK:       pins.SCK,
		SDO:       pins.MOSI,
		SDI:       pins.MISO,
		Mode:      0,
	})
	if err != nil {
		return nil, errors.Wrap(err, "configure SPI")
	}

	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cs.High()
	sel := func(devAddr int, active bool) error {
		cs.Set(!active)
		return nil
	}
	return core.New(bus.NewSPI(pins.SPI, int(rate), sel, nil), opts...), nil
}
