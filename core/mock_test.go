package core

import (
	"fmt"
	"sync"
)

// mockTransport records every call it receives
type mockTransport struct {
	mu    sync.Mutex
	calls []string

	startRxOK bool
	startTxOK bool

	// rxSource is handed out by RxData, at most rxChunk bytes per call
	rxSource []byte
	rxChunk  int
	// rxStall makes RxData return 0 this many times before delivering
	rxStall int

	txChunk  int
	txStall  int
	txBroken bool
	sent     []byte

	enables  int
	disables int
	resets   int
	rate     int
}

func newMockTransport() *mockTransport {
	return &mockTransport{startRxOK: true, startTxOK: true}
}

func (m *mockTransport) record(format string, args ...interface{}) {
	m.mu.Lock()
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
	m.mu.Unlock()
}

func (m *mockTransport) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *mockTransport) count(name string) int {
	n := 0
	for _, c := range m.Calls() {
		if c == name || len(c) > len(name) && c[:len(name)] == name && c[len(name)] == '(' {
			n++
		}
	}
	return n
}

func (m *mockTransport) Disable() {
	m.disables++
	m.record("disable")
}

func (m *mockTransport) Enable() {
	m.enables++
	m.record("enable")
}

func (m *mockTransport) Rate() int {
	return m.rate
}

// SetRate rounds down to a multiple of 100 kHz like a simple clock divider
func (m *mockTransport) SetRate(rate int) int {
	m.rate = rate / 100000 * 100000
	return m.rate
}

func (m *mockTransport) StartRx(devAddr int) bool {
	m.record("start_rx(%#x)", devAddr)
	return m.startRxOK
}

func (m *mockTransport) RxData(buf []byte) int {
	m.record("rx(%d)", len(buf))
	if m.rxStall > 0 {
		m.rxStall--
		return 0
	}
	n := len(buf)
	if m.rxChunk > 0 && n > m.rxChunk {
		n = m.rxChunk
	}
	n = copy(buf[:n], m.rxSource)
	m.rxSource = m.rxSource[n:]
	return n
}

func (m *mockTransport) StopRx() {
	m.record("stop_rx")
}

func (m *mockTransport) StartTx(devAddr int) bool {
	m.record("start_tx(%#x)", devAddr)
	return m.startTxOK
}

func (m *mockTransport) TxData(data []byte) int {
	m.record("tx(%d)", len(data))
	if m.txBroken {
		return 0
	}
	if m.txStall > 0 {
		m.txStall--
		return 0
	}
	n := len(data)
	if m.txChunk > 0 && n > m.txChunk {
		n = m.txChunk
	}
	m.sent = append(m.sent, data[:n]...)
	return n
}

func (m *mockTransport) StopTx() {
	m.record("stop_tx")
}

func (m *mockTransport) Reset() {
	m.resets++
	m.record("reset")
}

// queueTransport simulates an interrupt driven receiver with a bounded queue
type queueTransport struct {
	NopTransport
	iface *Interface
	queue []byte
	size  int
}

// receive is what the receive interrupt would do with incoming bytes
func (q *queueTransport) receive(data []byte) {
	if len(q.queue)+len(data) > q.size {
		if q.iface.Event(EventRxFifoFull, nil, len(q.queue)) == 0 {
			q.queue = q.queue[:0]
		}
	}
	room := q.size - len(q.queue)
	if room > len(data) {
		room = len(data)
	}
	q.queue = append(q.queue, data[:room]...)
	q.iface.Event(EventRxData, nil, len(q.queue))
}

func (q *queueTransport) RxData(buf []byte) int {
	n := copy(buf, q.queue)
	q.queue = q.queue[n:]
	return n
}
