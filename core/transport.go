package core

// Transport is the capability set every device interface implementation must provide.
// I2C, SPI, UART or a soft protocol such as a framed serial link all fit behind it.
//
// All methods are mandatory. An implementation that has nothing to do for an
// operation embeds NopTransport and overrides only what it needs.
type Transport interface {
	// Disable turns the interface off for energy saving. It must be possible
	// to turn it back on with Enable without a full re-initialisation.
	Disable()

	// Enable turns the interface on
	Enable()

	// Rate returns the transfer rate in transfers per second. The unit is
	// implementation defined (bits/s for a UART, clock Hz for I2C and SPI).
	Rate() int

	// SetRate requests a transfer rate and returns the rate actually set,
	// which is the closest rate the implementation supports.
	SetRate(rate int) int

	// StartRx prepares a receive: start condition for I2C, chip select for
	// SPI, DMA setup and so on. devAddr is the device selection scheme.
	StartRx(devAddr int) bool

	// RxData receives into buf and returns the number of bytes read
	RxData(buf []byte) int

	// StopRx completes the receive phase
	StopRx()

	// StartTx prepares a transmit, see StartRx
	StartTx(devAddr int) bool

	// TxData sends data and returns the number of bytes sent
	TxData(data []byte) int

	// StopTx completes the transmit phase
	StopTx()

	// Reset resets the interface
	Reset()
}

// FlowControl is implemented by transports that need to be asked before a
// transmit, typically hardware flow controlled UARTs.
type FlowControl interface {
	RequestToSend(n int) bool
}

// NopTransport implements every Transport operation as a no-op.
// Start operations succeed and data operations move nothing.
type NopTransport struct{}

func (NopTransport) Disable() {}
func (NopTransport) Enable() {}
func (NopTransport) Rate() int { return 0 }
func (NopTransport) SetRate(rate int) int { return 0 }
func (NopTransport) StartRx(devAddr int) bool { return true }
func (NopTransport) RxData(buf []byte) int { return 0 }
func (NopTransport) StopRx() {}
func (NopTransport) StartTx(devAddr int) bool { return true }
func (NopTransport) TxData(data []byte) int { return 0 }
func (NopTransport) StopTx() {}
func (NopTransport) Reset() {}

var _ Transport = NopTransport{}
