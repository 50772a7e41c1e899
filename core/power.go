package core

// Enable turns the interface on for one more user. The transport is only
// powered on by the first user.
func (i *Interface) Enable() {
	if i.enCnt.Inc() == 1 {
		i.transport.Enable()
	}
}

// Disable releases one user. The transport is only powered off when the
// last user is gone, so a device cannot turn off a bus another device still
// uses. Disabling more often than enabling is a caller error; the count
// stays at zero and the transport is not touched again.
func (i *Interface) Disable() {
	n, ok := i.enCnt.DecIfPositive()
	if !ok {
		i.logger.Warn("disable without matching enable")
		return
	}
	if n < 1 {
		i.transport.Disable()
	}
}
