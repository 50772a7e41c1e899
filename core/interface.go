// Package core implements the generic device transfer interface.
//
// An Interface wraps a Transport (I2C, SPI, UART, a soft serial protocol...)
// and adds what every transport needs and none should reimplement: a busy
// guard so a transaction cannot be started twice, reference counted power
// management for buses shared by several devices, and the composite
// transactions device drivers use (full receive, full transmit, register
// read and register write).
package core

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultMaxRetry is the retry budget used when none is configured
const DefaultMaxRetry = 5

// Interface is a device transfer interface instance.
// It may be shared by several devices on the same physical bus.
type Interface struct {
	transport Transport
	intPrio   int
	handler   atomic.Pointer[EventHandler]
	busy      Flag
	maxRetry  atomic.Int32
	enCnt     Counter
	strictCmd bool
	logger    *zap.Logger
}

// Option configures an Interface
type Option func(*Interface)

// WithMaxRetry sets the number of consecutive zero length transfers a
// composite transaction tolerates before giving up
func WithMaxRetry(n int) Option {
	return func(i *Interface) {
		i.maxRetry.Store(int32(n))
	}
}

// WithEventHandler registers the event handler
func WithEventHandler(h EventHandler) Option {
	return func(i *Interface) {
		i.SetEventHandler(h)
	}
}

// WithInterruptPriority records the transport interrupt priority.
// The value is only meaningful to the transport.
func WithInterruptPriority(prio int) Option {
	return func(i *Interface) {
		i.intPrio = prio
	}
}

// WithStrictCommand makes Read and Write abort when the address/command
// phase transfers fewer bytes than requested
func WithStrictCommand() Option {
	return func(i *Interface) {
		i.strictCmd = true
	}
}

// WithLogger sets the logger used for transaction diagnostics
func WithLogger(l *zap.Logger) Option {
	return func(i *Interface) {
		if l != nil {
			i.logger = l
		}
	}
}

// New wraps a transport. The transport must be fully usable: every
// operation callable, even if it does nothing.
func New(t Transport, opts ...Option) *Interface {
	if t == nil {
		panic("core: nil transport")
	}
	i := &Interface{
		transport: t,
		logger:    zap.NewNop(),
	}
	i.maxRetry.Store(DefaultMaxRetry)
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Transport returns the wrapped implementation
func (i *Interface) Transport() Transport {
	return i.transport
}

// InterruptPriority returns the priority given at construction
func (i *Interface) InterruptPriority() int {
	return i.intPrio
}

// SetEventHandler replaces the event handler. nil removes it.
func (i *Interface) SetEventHandler(h EventHandler) {
	if h == nil {
		i.handler.Store(nil)
		return
	}
	i.handler.Store(&h)
}

// MaxRetry returns the retry budget
func (i *Interface) MaxRetry() int {
	return int(i.maxRetry.Load())
}

// SetMaxRetry changes the retry budget
func (i *Interface) SetMaxRetry(n int) {
	i.maxRetry.Store(int32(n))
}

// Busy reports whether a transaction currently holds the interface
func (i *Interface) Busy() bool {
	return i.busy.IsSet()
}

// EnableCount returns the number of users that enabled the interface
func (i *Interface) EnableCount() int {
	return int(i.enCnt.Load())
}

// Rate returns the transport data rate
func (i *Interface) Rate() int {
	return i.transport.Rate()
}

// SetRate requests a data rate and returns the rate the transport actually
// set. Callers must not assume the requested value was accepted.
func (i *Interface) SetRate(rate int) int {
	return i.transport.SetRate(rate)
}

// Reset resets the transport. Busy state and enable count are untouched.
func (i *Interface) Reset() {
	i.transport.Reset()
}

// RequestToSend asks a flow controlled transport whether n bytes may be
// sent. Transports without flow control always accept.
func (i *Interface) RequestToSend(n int) bool {
	if fc, ok := i.transport.(FlowControl); ok {
		return fc.RequestToSend(n)
	}
	return true
}
