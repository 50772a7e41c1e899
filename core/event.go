package core

import "fmt"

// Event identifies an asynchronous condition reported by a transport
type Event uint8

const (
	// EventRxTimeout reports a receive timeout. buf holds what was received.
	EventRxTimeout Event = iota
	// EventRxData reports received data. Queue based transports pass a nil
	// buf and the number of queued bytes.
	EventRxData
	// EventRxFifoFull reports a full receive queue. The queue is flushed if the
	// handler returns 0.
	EventRxFifoFull
	// EventTxTimeout reports a transmit timeout
	EventTxTimeout
	// EventTxReady reports the transport can send. buf is a region the handler
	// may fill; the transport sends the number of bytes the handler returns.
	EventTxReady
	// EventTxFifoFull reports a full transmit queue. The queue is flushed if
	// the handler returns 0.
	EventTxFifoFull
	// EventStateChange reports a transport state change. buf content is
	// transport specific, for example UART line state.
	EventStateChange
)

var eventNames = [...]string{
	EventRxTimeout:   "rx_timeout",
	EventRxData:      "rx_data",
	EventRxFifoFull:  "rx_fifo_full",
	EventTxTimeout:   "tx_timeout",
	EventTxReady:     "tx_ready",
	EventTxFifoFull:  "tx_fifo_full",
	EventStateChange: "state_change",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("event(%d)", uint8(e))
}

// EventHandler receives transport events. It normally runs in interrupt or
// reader goroutine context: keep it short, never block, and never call the
// start/stop operations of the same Interface from it.
//
// The return value is the number of bytes processed. For the FIFO full
// events a zero return tells the transport to flush the queue.
type EventHandler func(iface *Interface, evt Event, buf []byte, n int) int

// Event forwards an event from the transport to the registered handler.
// It returns 0 when no handler is registered.
func (i *Interface) Event(evt Event, buf []byte, n int) int {
	h := i.handler.Load()
	if h == nil {
		return 0
	}
	return (*h)(i, evt, buf, n)
}
