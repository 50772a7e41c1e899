package bus

import (
	"github.com/pkg/errors"
	"tinygo.org/x/drivers"

	"devintrf/core"
)

var (
	// ErrBusy is returned while another transaction holds the interface
	ErrBusy = errors.New("interface busy")
	// ErrNoResponse is returned when a transaction could not start or moved
	// no data
	ErrNoResponse = errors.New("no response")
	// ErrShortTransfer is returned when fewer bytes moved than requested
	ErrShortTransfer = errors.New("short transfer")
)

func checkCount(iface *core.Interface, n, want int) error {
	switch {
	case n == want:
		return nil
	case n == 0 && iface.Busy():
		return ErrBusy
	case n == 0:
		return ErrNoResponse
	}
	return errors.Wrapf(ErrShortTransfer, "%d of %d bytes", n, want)
}

// DriverI2C exposes an Interface as a TinyGo I2C bus
type DriverI2C struct {
	iface *core.Interface
}

var _ drivers.I2C = (*DriverI2C)(nil)

// NewDriverI2C wraps iface
func NewDriverI2C(iface *core.Interface) *DriverI2C {
	return &DriverI2C{iface: iface}
}

// Tx writes w then reads r from the device at addr
func (d *DriverI2C) Tx(addr uint16, w, r []byte) error {
	if d.iface.Busy() {
		return ErrBusy
	}
	if len(r) > 0 {
		return checkCount(d.iface, d.iface.Read(int(addr), w, r), len(r))
	}

	// drop an error left by an earlier transaction
	d.stopErr()
	if len(w) > 0 {
		if err := checkCount(d.iface, d.iface.Write(int(addr), nil, w), len(w)); err != nil {
			return err
		}
		return d.stopErr()
	}
	// address only, used to probe for a device
	if !d.iface.StartTx(int(addr)) {
		return ErrNoResponse
	}
	d.iface.StopTx()
	return d.stopErr()
}

// stopErrer is implemented by transports that write on stop, such as I2C
type stopErrer interface {
	Err() error
}

// stopErr returns the error of the write the transport issued on stop
func (d *DriverI2C) stopErr() error {
	se, ok := d.iface.Transport().(stopErrer)
	if !ok {
		return nil
	}
	if err := se.Err(); err != nil {
		return errors.Wrapf(ErrNoResponse, "%v", err)
	}
	return nil
}

// ReadRegister reads len(buf) bytes starting at register r
func (d *DriverI2C) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return d.Tx(uint16(addr), []byte{r}, buf)
}

// WriteRegister writes buf starting at register r
func (d *DriverI2C) WriteRegister(addr uint8, r uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, r)
	return d.Tx(uint16(addr), append(w, buf...), nil)
}

// exchanger is implemented by full duplex transports such as SPI
type exchanger interface {
	Exchange(w, r []byte) int
}

// DriverSPI exposes an Interface as a TinyGo SPI bus for one device
type DriverSPI struct {
	iface *core.Interface
	addr  int
}

var _ drivers.SPI = (*DriverSPI)(nil)

// NewDriverSPI wraps iface for the device at addr
func NewDriverSPI(iface *core.Interface, addr int) *DriverSPI {
	return &DriverSPI{iface: iface, addr: addr}
}

// Tx sends w and receives r. When both are given and the transport is
// full duplex they are exchanged, otherwise w is sent before r is read.
func (d *DriverSPI) Tx(w, r []byte) error {
	if d.iface.Busy() {
		return ErrBusy
	}
	switch {
	case len(w) == 0 && len(r) == 0:
		return nil
	case len(r) == 0:
		return checkCount(d.iface, d.iface.Tx(d.addr, w), len(w))
	case len(w) == 0:
		return checkCount(d.iface, d.iface.Rx(d.addr, r), len(r))
	}

	ex, ok := d.iface.Transport().(exchanger)
	if !ok || len(w) != len(r) {
		return checkCount(d.iface, d.iface.Read(d.addr, w, r), len(r))
	}
	if !d.iface.StartTx(d.addr) {
		return checkCount(d.iface, 0, len(r))
	}
	n := ex.Exchange(w, r)
	d.iface.StopTx()
	return checkCount(d.iface, n, len(r))
}

// Transfer exchanges a single byte
func (d *DriverSPI) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := d.Tx([]byte{b}, r[:])
	return r[0], err
}
