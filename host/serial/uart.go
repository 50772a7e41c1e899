package serial

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"devintrf/core"
)

// OpenFunc opens a port for a configuration
type OpenFunc func(cfg *Config) (Port, error)

// ErrPortInUse is returned when the port is already open through the UART
// or a stream from its Opener
var ErrPortInUse = errors.New("serial port in use")

// UART is a transport over a serial port. The port is opened on Enable
// and closed on Disable. The device address is not used.
//
// The UART and the streams of its Opener exclude each other: only one of
// them holds the device at a time.
type UART struct {
	open   OpenFunc
	logger *zap.Logger

	mu      sync.Mutex
	cfg     Config
	port    Port
	streams int
}

var _ core.Transport = (*UART)(nil)

// UARTOption configures a UART
type UARTOption func(*UART)

// WithOpenFunc replaces the function used to open the port
func WithOpenFunc(open OpenFunc) UARTOption {
	return func(u *UART) {
		u.open = open
	}
}

// NewUART creates a UART transport
func NewUART(cfg Config, logger *zap.Logger, opts ...UARTOption) *UART {
	if logger == nil {
		logger = zap.NewNop()
	}
	u := &UART{
		open:   Open,
		logger: logger.With(zap.String("device", cfg.Device)),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Config returns the current port configuration
func (u *UART) Config() Config {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cfg
}

// Opener returns a function opening a stream on the device with the same
// configuration, for transports layered on the port such as a protocol
// link. Opening fails with ErrPortInUse while the UART is enabled.
func (u *UART) Opener() func() (io.ReadWriteCloser, error) {
	return func() (io.ReadWriteCloser, error) {
		u.mu.Lock()
		defer u.mu.Unlock()

		if u.port != nil {
			return nil, errors.Wrap(ErrPortInUse, u.cfg.Device)
		}
		cfg := u.cfg
		p, err := u.open(&cfg)
		if err != nil {
			return nil, err
		}
		u.streams++
		return &stream{Port: p, u: u}, nil
	}
}

// stream is a port opened through Opener
type stream struct {
	Port
	u    *UART
	once sync.Once
}

func (s *stream) Close() error {
	err := s.Port.Close()
	s.once.Do(func() {
		s.u.mu.Lock()
		s.u.streams--
		s.u.mu.Unlock()
	})
	return err
}

// Enable opens the port. It fails while a stream from Opener is open.
func (u *UART) Enable() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.port != nil {
		return
	}
	if u.streams > 0 {
		u.logger.Error("uart enable failed", zap.Error(errors.Wrap(ErrPortInUse, u.cfg.Device)))
		return
	}
	if err := u.openLocked(); err != nil {
		u.logger.Error("uart enable failed", zap.Error(err))
	}
}

// Disable closes the port
func (u *UART) Disable() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closeLocked()
}

// Rate returns the baud rate
func (u *UART) Rate() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cfg.Baud
}

// SetRate switches to the standard baud rate nearest to rate, reopening
// the port if it is open. It returns the rate applied.
func (u *UART) SetRate(rate int) int {
	u.mu.Lock()
	defer u.mu.Unlock()

	baud := NearestBaud(rate)
	if baud == u.cfg.Baud {
		return baud
	}
	u.cfg.Baud = baud
	if u.port != nil {
		u.closeLocked()
		if err := u.openLocked(); err != nil {
			u.logger.Error("uart reopen failed", zap.Int("baud", baud), zap.Error(err))
		}
	}
	return baud
}

// StartRx succeeds while the port is open
func (u *UART) StartRx(devAddr int) bool {
	return u.current() != nil
}

// RxData reads what the port has, waiting at most the read timeout
func (u *UART) RxData(buf []byte) int {
	p := u.current()
	if p == nil {
		return 0
	}
	n, err := p.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		u.logger.Debug("uart read failed", zap.Error(err))
	}
	if n < 0 {
		return 0
	}
	return n
}

// StopRx is a no-op
func (u *UART) StopRx() {}

// StartTx succeeds while the port is open
func (u *UART) StartTx(devAddr int) bool {
	return u.current() != nil
}

// TxData writes data to the port
func (u *UART) TxData(data []byte) int {
	p := u.current()
	if p == nil {
		return 0
	}
	n, err := p.Write(data)
	if err != nil {
		u.logger.Debug("uart write failed", zap.Error(err))
	}
	if n < 0 {
		return 0
	}
	return n
}

// StopTx is a no-op
func (u *UART) StopTx() {}

// Reset discards unread input
func (u *UART) Reset() {
	p := u.current()
	if p == nil {
		return
	}
	if err := p.Flush(); err != nil {
		u.logger.Debug("uart flush failed", zap.Error(err))
	}
}

func (u *UART) current() Port {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.port
}

func (u *UART) openLocked() error {
	cfg := u.cfg
	p, err := u.open(&cfg)
	if err != nil {
		return errors.Wrap(err, "open uart")
	}
	u.port = p
	return nil
}

func (u *UART) closeLocked() {
	if u.port == nil {
		return
	}
	if err := u.port.Close(); err != nil {
		u.logger.Warn("uart close failed", zap.Error(err))
	}
	u.port = nil
}
