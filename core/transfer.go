package core

import "go.uber.org/zap"

// Rx performs a full receive: StartRx, RxData until buf is full or the
// transport stops making progress, StopRx.
// It returns the number of bytes received, 0 if the start failed.
func (i *Interface) Rx(devAddr int, buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	if !i.StartRx(devAddr) {
		return 0
	}
	n := i.receive(buf)
	i.StopRx()
	return n
}

// Tx performs a full transmit: StartTx, TxData until all data is sent or
// the transport stops making progress, StopTx.
// It returns the number of bytes sent, 0 if the start failed.
func (i *Interface) Tx(devAddr int, data []byte) int {
	if len(data) == 0 {
		return 0
	}
	if !i.StartTx(devAddr) {
		return 0
	}
	n := i.transmit(data)
	i.StopTx()
	return n
}

// Read performs a device read transfer. Most devices expect a register
// address or command written first, then the result is read back, all
// within one start condition. The command is sent once; the payload is
// received into buf.
//
// It returns the number of payload bytes read, not counting cmd.
func (i *Interface) Read(devAddr int, cmd []byte, buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	if !i.StartRx(devAddr) {
		return 0
	}

	if len(cmd) > 0 {
		sent := i.TxData(cmd)
		if sent < len(cmd) && !i.commandShort(sent, len(cmd)) {
			i.StopRx()
			return 0
		}
	}

	n := i.receive(buf)
	i.StopRx()
	return n
}

// Write performs a device write transfer: the register address or command
// followed by data, within one start condition.
//
// It returns the number of data bytes sent, not counting cmd.
func (i *Interface) Write(devAddr int, cmd []byte, data []byte) int {
	if len(data) == 0 && len(cmd) == 0 {
		return 0
	}
	if !i.StartTx(devAddr) {
		return 0
	}

	if len(cmd) > 0 {
		sent := i.TxData(cmd)
		if sent < len(cmd) && !i.commandShort(sent, len(cmd)) {
			i.StopTx()
			return 0
		}
	}

	n := i.transmit(data)
	i.StopTx()
	return n
}

// commandShort logs a short address/command phase and reports whether the
// transaction may continue
func (i *Interface) commandShort(sent, want int) bool {
	i.logger.Debug("short command transfer",
		zap.Int("sent", sent),
		zap.Int("want", want),
		zap.Bool("strict", i.strictCmd))
	return !i.strictCmd
}

// receive loops RxData within an open receive phase
func (i *Interface) receive(buf []byte) int {
	total := 0
	miss := 0
	limit := i.retryLimit()
	for total < len(buf) {
		n := i.RxData(buf[total:])
		if n > 0 {
			total += n
			miss = 0
			continue
		}
		miss++
		if miss >= limit {
			i.logger.Debug("receive gave up",
				zap.Int("received", total),
				zap.Int("want", len(buf)),
				zap.Int("retries", miss))
			break
		}
	}
	return total
}

// transmit loops TxData within an open transmit phase
func (i *Interface) transmit(data []byte) int {
	total := 0
	miss := 0
	limit := i.retryLimit()
	for total < len(data) {
		n := i.TxData(data[total:])
		if n > 0 {
			total += n
			miss = 0
			continue
		}
		miss++
		if miss >= limit {
			i.logger.Debug("transmit gave up",
				zap.Int("sent", total),
				zap.Int("want", len(data)),
				zap.Int("retries", miss))
			break
		}
	}
	return total
}

// retryLimit is the number of consecutive empty transfers allowed.
// A budget below one still allows a single attempt.
func (i *Interface) retryLimit() int {
	if n := i.MaxRetry(); n > 1 {
		return n
	}
	return 1
}
