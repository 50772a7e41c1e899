package bus

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"devintrf/core"
)

// Standard I2C bus speeds
const (
	I2CStandard  = 100000
	I2CFast      = 400000
	I2CFastPlus  = 1000000
	I2CHighSpeed = 3400000
)

var i2cRates = []int{I2CStandard, I2CFast, I2CFastPlus, I2CHighSpeed}

// I2CConn is an I2C bus. A transaction writes w then reads into r with a
// repeated start in between.
type I2CConn interface {
	Tx(addr uint16, w, r []byte) error
}

// I2C is a transport over an I2C bus.
//
// Bytes sent with TxData are held until the transaction either reads,
// which sends them as the write phase of a combined transaction, or
// stops. A failed read keeps them so a retry writes them again. A
// transaction that stops without having read writes what is held, or
// only the address when nothing is. Errors from those writes are logged
// and kept for Err.
type I2C struct {
	conn   I2CConn
	logger *zap.Logger

	mu      sync.Mutex
	rate    int
	addr    uint16
	pending []byte
	read    bool
	err     error
}

var _ core.Transport = (*I2C)(nil)

// NewI2C creates an I2C transport at standard speed
func NewI2C(conn I2CConn, logger *zap.Logger) *I2C {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &I2C{conn: conn, logger: logger, rate: I2CStandard}
}

// Enable is a no-op, the bus is opened by its owner
func (b *I2C) Enable() {}

// Disable is a no-op
func (b *I2C) Disable() {}

// Rate returns the bus speed in Hz
func (b *I2C) Rate() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rate
}

// SetRate switches to the standard speed nearest to rate and returns it.
// The current speed is kept if the bus refuses the change.
func (b *I2C) SetRate(rate int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	want := nearestI2CRate(rate)
	if _, err := applyRate(b.conn, want); err != nil {
		b.logger.Warn("i2c speed change failed", zap.Int("rate", want), zap.Error(err))
		return b.rate
	}
	b.rate = want
	return want
}

func nearestI2CRate(rate int) int {
	best := i2cRates[0]
	for _, r := range i2cRates[1:] {
		if absDiff(r, rate) < absDiff(best, rate) {
			best = r
		}
	}
	return best
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// StartRx starts a transaction with the 7 or 10 bit device address
func (b *I2C) StartRx(devAddr int) bool {
	return b.start(devAddr)
}

// StartTx starts a transaction with the 7 or 10 bit device address
func (b *I2C) StartTx(devAddr int) bool {
	return b.start(devAddr)
}

func (b *I2C) start(devAddr int) bool {
	if devAddr < 0 || devAddr > 0x3FF {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addr = uint16(devAddr)
	b.pending = b.pending[:0]
	b.read = false
	return true
}

// RxData reads len(buf) bytes, preceded by any pending write
func (b *I2C) RxData(buf []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.read = true
	if err := b.conn.Tx(b.addr, b.pending, buf); err != nil {
		b.logger.Debug("i2c read failed", zap.Uint16("addr", b.addr), zap.Error(err))
		return 0
	}
	b.pending = b.pending[:0]
	return len(buf)
}

// StopRx sends a pending write that was never followed by a read
func (b *I2C) StopRx() {
	b.flush()
}

// TxData queues data for the write phase
func (b *I2C) TxData(data []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, data...)
	return len(data)
}

// StopTx sends the queued write
func (b *I2C) StopTx() {
	b.flush()
}

// Reset drops a queued write
func (b *I2C) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = b.pending[:0]
}

// Err returns and clears the last error of a write flushed on stop
func (b *I2C) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.err
	b.err = nil
	return err
}

func (b *I2C) flush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.read {
		// left over from a read that never succeeded
		b.pending = b.pending[:0]
		return
	}
	err := b.conn.Tx(b.addr, b.pending, nil)
	b.pending = b.pending[:0]
	b.read = true
	if err != nil {
		b.err = errors.Wrapf(err, "i2c write to %#x", b.addr)
		b.logger.Debug("i2c write failed", zap.Uint16("addr", b.addr), zap.Error(err))
	}
}
