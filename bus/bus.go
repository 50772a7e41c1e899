// Package bus binds I2C and SPI buses to the device transfer interface.
//
// I2C and SPI are transports over anything with the usual Tx method, so
// TinyGo machine buses, periph.io Linux buses and test doubles all work.
// DriverI2C and DriverSPI go the other way and expose an Interface as the
// bus types TinyGo device drivers expect.
package bus

import "periph.io/x/conn/v3/physic"

// baudSetter is implemented by TinyGo machine buses
type baudSetter interface {
	SetBaudRate(br uint32) error
}

// speedSetter is implemented by periph.io I2C buses
type speedSetter interface {
	SetSpeed(f physic.Frequency) error
}

// speedLimiter is implemented by periph.io SPI ports
type speedLimiter interface {
	LimitSpeed(f physic.Frequency) error
}

func applyRate(conn interface{}, rate int) (bool, error) {
	switch c := conn.(type) {
	case baudSetter:
		return true, c.SetBaudRate(uint32(rate))
	case speedSetter:
		return true, c.SetSpeed(physic.Frequency(rate) * physic.Hertz)
	case speedLimiter:
		return true, c.LimitSpeed(physic.Frequency(rate) * physic.Hertz)
	}
	return false, nil
}
