package bus

import (
	"sync"

	"go.uber.org/zap"

	"devintrf/core"
)

// SPIConn is a full duplex SPI connection
type SPIConn interface {
	Tx(w, r []byte) error
}

// SelectFunc drives the chip select for devAddr
type SelectFunc func(devAddr int, active bool) error

// SPI is a transport over an SPI connection. The device address is passed
// to the chip select hook, which stays active from start to stop.
type SPI struct {
	conn   SPIConn
	sel    SelectFunc
	logger *zap.Logger
	// Fill is clocked out while receiving
	Fill byte

	mu      sync.Mutex
	rate    int
	addr    int
	scratch []byte
}

var _ core.Transport = (*SPI)(nil)

// NewSPI creates an SPI transport. sel may be nil when chip select is
// handled by the connection.
func NewSPI(conn SPIConn, rate int, sel SelectFunc, logger *zap.Logger) *SPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SPI{conn: conn, sel: sel, logger: logger, rate: rate}
}

// Enable is a no-op, the bus is opened by its owner
func (s *SPI) Enable() {}

// Disable is a no-op
func (s *SPI) Disable() {}

// Rate returns the clock rate in Hz
func (s *SPI) Rate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// SetRate changes the clock rate. Connections without a rate setting keep
// running at their configured clock and only the nominal rate changes.
func (s *SPI) SetRate(rate int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := applyRate(s.conn, rate); err != nil {
		s.logger.Warn("spi speed change failed", zap.Int("rate", rate), zap.Error(err))
		return s.rate
	}
	s.rate = rate
	return rate
}

// StartRx selects the device
func (s *SPI) StartRx(devAddr int) bool {
	return s.selectDevice(devAddr)
}

// StartTx selects the device
func (s *SPI) StartTx(devAddr int) bool {
	return s.selectDevice(devAddr)
}

func (s *SPI) selectDevice(devAddr int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sel != nil {
		if err := s.sel(devAddr, true); err != nil {
			s.logger.Debug("spi select failed", zap.Int("addr", devAddr), zap.Error(err))
			return false
		}
	}
	s.addr = devAddr
	return true
}

// RxData clocks in len(buf) bytes
func (s *SPI) RxData(buf []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.scratchLocked(len(buf))
	for i := range w {
		w[i] = s.Fill
	}
	return s.txLocked(w, buf)
}

// TxData clocks out data, discarding what comes back
func (s *SPI) TxData(data []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txLocked(data, s.scratchLocked(len(data)))
}

// Exchange clocks out w while clocking in r, both the same length
func (s *SPI) Exchange(w, r []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(w) != len(r) {
		return 0
	}
	return s.txLocked(w, r)
}

// StopRx deselects the device
func (s *SPI) StopRx() {
	s.deselect()
}

// StopTx deselects the device
func (s *SPI) StopTx() {
	s.deselect()
}

// Reset deselects the device
func (s *SPI) Reset() {
	s.deselect()
}

func (s *SPI) deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sel == nil {
		return
	}
	if err := s.sel(s.addr, false); err != nil {
		s.logger.Debug("spi deselect failed", zap.Int("addr", s.addr), zap.Error(err))
	}
}

func (s *SPI) scratchLocked(n int) []byte {
	if cap(s.scratch) < n {
		s.scratch = make([]byte, n)
	}
	return s.scratch[:n]
}

func (s *SPI) txLocked(w, r []byte) int {
	if err := s.conn.Tx(w, r); err != nil {
		s.logger.Debug("spi transfer failed", zap.Int("addr", s.addr), zap.Error(err))
		return 0
	}
	return len(w)
}
