package core

// StartRx prepares a receive on devAddr.
//
// It never blocks: if another transaction holds the interface it returns
// false without calling the transport. On success StopRx must be called to
// release the interface.
func (i *Interface) StartRx(devAddr int) bool {
	if i.busy.TestAndSet() {
		i.logger.Debug("start rx rejected, interface busy")
		return false
	}

	if !i.transport.StartRx(devAddr) {
		// The caller will not call StopRx after a failed start
		i.busy.Clear()
		i.logger.Debug("transport refused start rx")
		return false
	}
	return true
}

// RxData reads into buf and returns the number of bytes received.
// Only valid between StartRx and StopRx.
func (i *Interface) RxData(buf []byte) int {
	return i.transport.RxData(buf)
}

// StopRx completes a receive and releases the interface.
// Must only be called after a successful StartRx.
func (i *Interface) StopRx() {
	i.transport.StopRx()
	i.busy.Clear()
}

// StartTx prepares a transmit on devAddr, see StartRx.
// On success StopTx must be called to release the interface.
func (i *Interface) StartTx(devAddr int) bool {
	if i.busy.TestAndSet() {
		i.logger.Debug("start tx rejected, interface busy")
		return false
	}

	if !i.transport.StartTx(devAddr) {
		i.busy.Clear()
		i.logger.Debug("transport refused start tx")
		return false
	}
	return true
}

// TxData sends data and returns the number of bytes sent.
// Only valid between StartTx and StopTx.
func (i *Interface) TxData(data []byte) int {
	return i.transport.TxData(data)
}

// StopTx completes a transmit and releases the interface.
// Must only be called after a successful StartTx.
func (i *Interface) StopTx() {
	i.transport.StopTx()
	i.busy.Clear()
}
