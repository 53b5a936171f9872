package flow

import (
	"sync"

	"github.com/sarchlab/flowsim/sim"
)

// A Request is an entity waiting at a Seize for capacity.
type Request[T sim.Time[T]] struct {
	// ID increases with arrival order on the Seize that created the request.
	ID           uint64
	Entity       Entity
	Amount       float64
	CreationTime T
	Station      string
}

// RequestQueue holds the requests of one or more Seize stations in arrival
// order. Seize stations that share a queue report the length of the shared
// queue.
type RequestQueue[T sim.Time[T]] struct {
	lock     sync.Mutex
	requests []*Request[T]
}

// NewRequestQueue creates an empty RequestQueue.
func NewRequestQueue[T sim.Time[T]]() *RequestQueue[T] {
	return &RequestQueue[T]{}
}

// Len returns the number of queued requests.
func (q *RequestQueue[T]) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	return len(q.requests)
}

// Requests returns a copy of the queued requests, oldest first.
func (q *RequestQueue[T]) Requests() []Request[T] {
	q.lock.Lock()
	defer q.lock.Unlock()

	requests := make([]Request[T], 0, len(q.requests))
	for _, req := range q.requests {
		requests = append(requests, *req)
	}

	return requests
}

func (q *RequestQueue[T]) push(req *Request[T]) int {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.requests = append(q.requests, req)

	return len(q.requests)
}

// remove takes out exactly req, matched by identity, and returns the new
// length. Two requests with the same entity and amount are never confused.
func (q *RequestQueue[T]) remove(req *Request[T]) (int, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	for i, r := range q.requests {
		if r != req {
			continue
		}

		copy(q.requests[i:], q.requests[i+1:])
		q.requests[len(q.requests)-1] = nil
		q.requests = q.requests[:len(q.requests)-1]

		return len(q.requests), true
	}

	return len(q.requests), false
}
