package core

import "go.uber.org/atomic"

// Flag is a boolean that is only ever changed atomically.
// It is the busy guard of an Interface.
type Flag struct {
	v atomic.Bool
}

// TestAndSet sets the flag and returns the value it held before
func (f *Flag) TestAndSet() bool {
	return f.v.Swap(true)
}

// Clear resets the flag to false
func (f *Flag) Clear() {
	f.v.Store(false)
}

// IsSet reports the current value
func (f *Flag) IsSet() bool {
	return f.v.Load()
}

// Counter is an atomic reference counter
type Counter struct {
	v atomic.Int32
}

// Inc increments the counter and returns the new value
func (c *Counter) Inc() int32 {
	return c.v.Inc()
}

// Dec decrements the counter and returns the new value
func (c *Counter) Dec() int32 {
	return c.v.Dec()
}

// DecIfPositive decrements the counter only when it is above zero.
// It returns the resulting value and whether a decrement happened.
func (c *Counter) DecIfPositive() (int32, bool) {
	for {
		cur := c.v.Load()
		if cur <= 0 {
			return cur, false
		}
		if c.v.CompareAndSwap(cur, cur-1) {
			return cur - 1, true
		}
	}
}

// Load returns the current value
func (c *Counter) Load() int32 {
	return c.v.Load()
}
