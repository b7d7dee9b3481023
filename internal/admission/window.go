package admission

import (
	"context"
	"sync"
	"time"
)

// WindowController admits at most limit acquisitions per window using an
// in-process permit pool. A background loop restores the pool to full
// capacity every window tick, regardless of how much of the prior window
// was spent.
type WindowController struct {
	permits chan struct{}
	stopCh  chan struct{}
	once    sync.Once
}

// NewWindow builds a controller with all limit permits available
// immediately. The first refill fires one full window after
// construction; the initial grant is the first window's capacity.
func NewWindow(limit int, window time.Duration) (*WindowController, error) {
	if limit <= 0 || window <= 0 {
		return nil, ErrBadLimit
	}
	c := &WindowController{
		permits: make(chan struct{}, limit),
		stopCh:  make(chan struct{}),
	}
	for i := 0; i < limit; i++ {
		c.permits <- struct{}{}
	}
	go c.refillLoop(window)
	return c, nil
}

func (c *WindowController) refillLoop(window time.Duration) {
	t := time.NewTicker(window)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.refill()
		case <-c.stopCh:
			return
		}
	}
}

// refill tops the pool back up to capacity. The channel buffer bounds
// the count, so exactly the missing permits are added and a full pool
// is a no-op.
func (c *WindowController) refill() {
	for {
		select {
		case c.permits <- struct{}{}:
		default:
			return
		}
	}
}

// Acquire takes one permit, blocking until the next refill when the
// window's allowance is spent.
func (c *WindowController) Acquire(ctx context.Context) error {
	select {
	case <-c.permits:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopCh:
		return ErrClosed
	}
}

// Available reports how many permits remain in the current window.
func (c *WindowController) Available() int { return len(c.permits) }

// Close stops the refill loop and wakes blocked acquirers with
// ErrClosed. Safe to call more than once.
func (c *WindowController) Close() error {
	c.once.Do(func() { close(c.stopCh) })
	return nil
}
