package lifecycle

import "context"

// Ticket tracks one accepted submission.
type Ticket struct {
	Token uint64
	done  <-chan struct{}
}

// Done is closed once the submission has settled, whether its result was
// applied or discarded as stale.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the submission settles or ctx ends.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func settledTicket(token uint64) *Ticket {
	done := make(chan struct{})
	close(done)

	return &Ticket{Token: token, done: done}
}
