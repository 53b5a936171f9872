package resource

import "github.com/sarchlab/flowsim/sim"

// A Requestor is notified when the capacity it asked for is granted.
//
// OnGranted is called exactly once per request, after the Resource has
// committed the grant. It may call back into the Resource.
type Requestor interface {
	OnGranted(amount float64)
}

// Request is one outstanding claim waiting in a Resource queue.
type Request[T sim.Time[T]] struct {
	// ID increases with arrival order on the Resource.
	ID uint64

	Amount       float64
	CreationTime T
	Requestor    Requestor
}

// Change describes the state of a Resource after a committed operation. It is
// the Item of the hooks a Resource invokes.
type Change[T sim.Time[T]] struct {
	Time        T
	Seq         uint64
	Capacity    float64
	Claimed     float64
	QueueLength int
}

// Utilization returns claimed / capacity, or 0 for a zero-capacity resource.
func (c Change[T]) Utilization() float64 {
	if c.Capacity == 0 {
		return 0
	}

	return c.Claimed / c.Capacity
}
