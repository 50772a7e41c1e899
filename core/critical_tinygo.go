//go:build tinygo

package core

import "runtime/interrupt"

// Critical protects state shared between a transport's interrupt handler
// and the main loop by masking interrupts. Sections must not nest.
type Critical struct {
	state interrupt.State
}

// Enter disables interrupts
func (c *Critical) Enter() {
	c.state = interrupt.Disable()
}

// Exit restores the interrupt state saved by Enter
func (c *Critical) Exit() {
	interrupt.Restore(c.state)
}
