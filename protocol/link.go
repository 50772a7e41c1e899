package protocol

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"devintrf/core"
)

// State change codes carried in the first byte of an EventStateChange buffer
const (
	// StateSeqGap is followed by the expected and the received sequence
	StateSeqGap byte = iota + 1
	// StateResync reports corrupt input was dropped
	StateResync
)

// DefaultRxQueue is the receive queue size used when none is configured
const DefaultRxQueue = 256

// Opener opens the byte stream a Link runs over
type Opener func() (io.ReadWriteCloser, error)

// RateSetter is implemented by streams with a configurable line rate
type RateSetter interface {
	Rate() int
	SetRate(rate int) int
}

// LinkConfig configures a Link
type LinkConfig struct {
	// Address is this end's address. Blocks for other addresses are
	// ignored, broadcast blocks are always accepted.
	Address uint32
	// RxQueue is the receive queue size in bytes
	RxQueue int
	// Rate is the nominal rate reported for streams without a RateSetter
	Rate int
}

// Link is a transport carrying framed blocks over a byte stream.
// Received data is queued and reported through events, sending is
// synchronous.
type Link struct {
	open   Opener
	cfg    LinkConfig
	logger *zap.Logger
	iface  atomic.Pointer[core.Interface]

	mu      sync.Mutex
	stream  io.ReadWriteCloser
	done    chan struct{}
	closing atomic.Bool
	enc     *Encoder
	txAddr  uint32
	txBuf   []byte

	decMu sync.Mutex
	dec   *Decoder

	crit core.Critical
	rx   *FifoBuffer
	rate atomic.Int64
}

var _ core.Transport = (*Link)(nil)

// NewLink creates a link. The stream is opened on Enable.
func NewLink(open Opener, cfg LinkConfig, logger *zap.Logger) *Link {
	if cfg.RxQueue <= 0 {
		cfg.RxQueue = DefaultRxQueue
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Link{
		open:   open,
		cfg:    cfg,
		logger: logger,
		enc:    NewEncoder(),
		dec:    NewDecoder(),
		rx:     NewFifoBuffer(cfg.RxQueue + 1),
	}
	l.rate.Store(int64(cfg.Rate))
	return l
}

// Bind sets the Interface events are reported to
func (l *Link) Bind(iface *core.Interface) {
	l.iface.Store(iface)
}

func (l *Link) event(evt core.Event, buf []byte, n int) int {
	iface := l.iface.Load()
	if iface == nil {
		return 0
	}
	return iface.Event(evt, buf, n)
}

// Enable opens the stream and starts receiving
func (l *Link) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stream != nil {
		return
	}
	s, err := l.open()
	if err != nil {
		l.logger.Error("link open failed", zap.Error(errors.Wrap(err, "open stream")))
		return
	}
	l.stream = s
	l.done = make(chan struct{})
	l.closing.Store(false)
	go l.readLoop(s, l.done)
}

// Disable closes the stream and waits for the receiver to stop
func (l *Link) Disable() {
	l.mu.Lock()
	s, done := l.stream, l.done
	l.stream = nil
	l.txBuf = l.txBuf[:0]
	l.mu.Unlock()

	if s == nil {
		return
	}
	l.closing.Store(true)
	if err := s.Close(); err != nil {
		l.logger.Warn("link close failed", zap.Error(err))
	}
	<-done
}

// Rate returns the stream rate
func (l *Link) Rate() int {
	if rs, ok := l.currentStream().(RateSetter); ok {
		return rs.Rate()
	}
	return int(l.rate.Load())
}

// SetRate changes the stream rate and returns the rate applied
func (l *Link) SetRate(rate int) int {
	if rs, ok := l.currentStream().(RateSetter); ok {
		return rs.SetRate(rate)
	}
	l.rate.Store(int64(rate))
	return rate
}

func (l *Link) currentStream() io.ReadWriteCloser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stream
}

// StartRx succeeds while the stream is open. The address is not used,
// the queue holds everything addressed to this end.
func (l *Link) StartRx(devAddr int) bool {
	return l.currentStream() != nil
}

// RxData moves queued bytes into buf
func (l *Link) RxData(buf []byte) int {
	l.crit.Enter()
	n := l.rx.Read(buf)
	l.crit.Exit()
	return n
}

// StopRx is a no-op
func (l *Link) StopRx() {}

// StartTx begins a transmission to devAddr
func (l *Link) StartTx(devAddr int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stream == nil || devAddr < 0 {
		return false
	}
	l.txAddr = uint32(devAddr)
	l.txBuf = l.txBuf[:0]
	return true
}

// TxData packs data into blocks, writing each one as it fills.
// It returns the number of bytes accepted.
func (l *Link) TxData(data []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stream == nil {
		return 0
	}
	room := MaxBlockData(l.txAddr)
	sent := 0
	for len(data) > 0 {
		take := room - len(l.txBuf)
		if take > len(data) {
			take = len(data)
		}
		l.txBuf = append(l.txBuf, data[:take]...)
		data = data[take:]
		if len(l.txBuf) == room {
			if err := l.flushLocked(); err != nil {
				// bytes counted by earlier calls stay queued for the next flush
				l.txBuf = l.txBuf[:len(l.txBuf)-take]
				l.logger.Debug("link write failed", zap.Error(err))
				return sent
			}
		}
		sent += take
	}
	return sent
}

// StopTx writes the pending block, then offers the handler a buffer to
// fill with data to send before the transmission ends
func (l *Link) StopTx() {
	l.mu.Lock()
	if l.stream == nil {
		l.mu.Unlock()
		return
	}
	if err := l.flushLocked(); err != nil {
		l.txBuf = l.txBuf[:0]
		l.logger.Debug("link write failed", zap.Error(err))
	}
	addr := l.txAddr
	l.mu.Unlock()

	buf := make([]byte, MaxBlockData(addr))
	n := l.event(core.EventTxReady, buf, len(buf))
	if n <= 0 {
		return
	}
	if n > len(buf) {
		n = len(buf)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stream == nil {
		return
	}
	l.txBuf = append(l.txBuf[:0], buf[:n]...)
	if err := l.flushLocked(); err != nil {
		l.txBuf = l.txBuf[:0]
		l.logger.Debug("link write failed", zap.Error(err))
	}
}

// Reset drops queued input and restarts both sequences
func (l *Link) Reset() {
	l.decMu.Lock()
	l.dec.Reset()
	l.decMu.Unlock()

	l.mu.Lock()
	l.enc.Reset()
	l.txBuf = l.txBuf[:0]
	l.mu.Unlock()

	l.crit.Enter()
	l.rx.Reset()
	l.crit.Exit()
}

func (l *Link) flushLocked() error {
	if len(l.txBuf) == 0 {
		return nil
	}
	block, err := l.enc.Encode(l.txAddr, l.txBuf)
	if err != nil {
		l.txBuf = l.txBuf[:0]
		return err
	}
	n, err := l.stream.Write(block)
	if err != nil {
		return errors.Wrap(err, "write block")
	}
	if n != len(block) {
		return errors.Errorf("incomplete write: %d/%d bytes", n, len(block))
	}
	l.txBuf = l.txBuf[:0]
	return nil
}

func (l *Link) readLoop(s io.ReadWriteCloser, done chan struct{}) {
	defer close(done)

	buf := make([]byte, 256)
	for {
		n, err := s.Read(buf)
		if n > 0 {
			l.decMu.Lock()
			results := l.dec.Feed(buf[:n])
			l.decMu.Unlock()
			l.dispatch(results)
		}
		if err == nil {
			continue
		}
		if l.closing.Load() || errors.Is(err, io.EOF) {
			return
		}
		l.logger.Debug("link read failed", zap.Error(err))
		time.Sleep(10 * time.Millisecond)
	}
}

func (l *Link) dispatch(results []Result) {
	for _, r := range results {
		switch r.Status {
		case StatusResync:
			l.event(core.EventStateChange, []byte{StateResync}, 1)
		case StatusSeqGap:
			l.event(core.EventStateChange, []byte{StateSeqGap, r.Want, r.Block.Seq}, 3)
		case StatusBlock:
			if r.Block.Addr != l.cfg.Address && r.Block.Addr != BroadcastAddr {
				continue
			}
			l.queue(r.Block.Data)
		}
	}
}

// queue stores received data, asking the handler what to do when the
// queue cannot take it all
func (l *Link) queue(data []byte) {
	l.crit.Enter()
	full := l.rx.Free() < len(data)
	queued := l.rx.Available()
	l.crit.Exit()

	if full && l.event(core.EventRxFifoFull, nil, queued) == 0 {
		l.crit.Enter()
		l.rx.Reset()
		l.crit.Exit()
	}

	l.crit.Enter()
	n := l.rx.Write(data)
	queued = l.rx.Available()
	l.crit.Exit()

	if n < len(data) {
		l.logger.Debug("link receive queue overflow", zap.Int("dropped", len(data)-n))
	}
	l.event(core.EventRxData, nil, queued)
}
