//go:build !tinygo

package bus

import (
	"io"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// OpenPeriphI2C opens a Linux I2C bus by name ("1", "/dev/i2c-1", or ""
// for the first one found)
func OpenPeriphI2C(name string, logger *zap.Logger) (*I2C, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, errors.Wrap(err, "periph host init")
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open i2c bus %q", name)
	}
	return NewI2C(b, logger), b, nil
}

// periphSPI keeps the port next to its connection so rate changes can be
// applied to the port
type periphSPI struct {
	port spi.PortCloser
	conn spi.Conn
}

func (p *periphSPI) Tx(w, r []byte) error {
	return p.conn.Tx(w, r)
}

func (p *periphSPI) LimitSpeed(f physic.Frequency) error {
	return p.port.LimitSpeed(f)
}

// OpenPeriphSPI opens a Linux SPI port by name ("SPI0.0", "/dev/spidev0.0")
// and connects at rate Hz in mode 0..3 with bits per word
func OpenPeriphSPI(name string, rate, mode, bits int, logger *zap.Logger) (*SPI, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, errors.Wrap(err, "periph host init")
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open spi port %q", name)
	}
	if bits <= 0 {
		bits = 8
	}
	conn, err := port.Connect(physic.Frequency(rate)*physic.Hertz, spi.Mode(mode), bits)
	if err != nil {
		err = errors.Wrapf(err, "connect spi port %q", name)
		return nil, nil, multierr.Combine(err, port.Close())
	}
	return NewSPI(&periphSPI{port: port, conn: conn}, rate, nil, logger), port, nil
}
