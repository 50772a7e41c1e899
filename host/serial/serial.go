// Package serial provides serial port access and a UART transport.
package serial

import (
	"io"
)

// Port represents a serial port interface
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns a default configuration for device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}

// StandardBauds are the rates SetRate rounds to
var StandardBauds = []int{
	1200, 2400, 4800, 9600, 19200, 38400, 57600,
	115200, 230400, 250000, 460800, 500000, 921600, 1000000,
}

// NearestBaud returns the standard baud rate closest to rate
func NearestBaud(rate int) int {
	best := StandardBauds[0]
	for _, b := range StandardBauds[1:] {
		if abs(b-rate) < abs(best-rate) {
			best = b
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
