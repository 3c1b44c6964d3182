// Package sigchan provides a non-blocking signal channel for notifying that
// an event happened without carrying data.
package sigchan

// Chan is a non-blocking signal channel.
type Chan struct {
	c chan struct{}
}

// New creates a signal channel with the given buffer size.
func New(bufferSize int) *Chan {
	return &Chan{c: make(chan struct{}, bufferSize)}
}

// Emit sends a signal. If the buffer is full the signal is dropped, since a
// pending signal already covers it.
func (c *Chan) Emit() {
	select {
	case c.c <- struct{}{}:
	default:
	}
}

// C returns the underlying channel for use in select.
func (c *Chan) C() <-chan struct{} {
	return c.c
}
