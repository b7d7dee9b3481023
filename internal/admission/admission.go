package admission

import (
	"context"
	"errors"
)

var (
	// ErrBadLimit is returned by constructors when the request limit or
	// the window duration is not positive.
	ErrBadLimit = errors.New("admission: limit and window must be positive")

	// ErrClosed is returned to waiters when the controller is shut down.
	ErrClosed = errors.New("admission: controller closed")
)

// Controller gates outbound work to a bounded number of grants per
// time window. Implementations reset capacity to full every window;
// unused permits never carry over.
type Controller interface {
	// Acquire blocks until a permit is granted, the context is done, or
	// the controller is closed. An abandoned wait consumes no permit.
	Acquire(ctx context.Context) error

	// Close stops the refill schedule and releases backend resources.
	Close() error
}
