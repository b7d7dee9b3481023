package crpt

import "time"

// Outcome describes one finished submission attempt. Status is zero
// when the request never produced a response.
type Outcome struct {
	DocID     string
	RequestID string
	Status    int
	Duration  time.Duration
	Err       error
}

// Observer receives submission outcomes. When none is set the client
// logs them itself. Implementations must be safe for concurrent use.
type Observer func(Outcome)
