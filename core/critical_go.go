//go:build !tinygo

package core

import "sync"

// Critical protects state shared between a transport's event context and
// the calling goroutine. On regular Go event contexts are goroutines, so a
// mutex is enough.
type Critical struct {
	mu sync.Mutex
}

// Enter starts the critical section
func (c *Critical) Enter() {
	c.mu.Lock()
}

// Exit ends the critical section
func (c *Critical) Exit() {
	c.mu.Unlock()
}
