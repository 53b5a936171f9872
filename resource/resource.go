// Package resource provides a finite capacity pool that entities compete for.
//
// A Resource grants capacity in strict arrival order. Requests that cannot be
// satisfied wait in a FIFO queue, and every release rescans the queue from
// the head. The scan stops at the first request that does not fit, so a later
// small request never overtakes an earlier large one (head-of-line blocking).
// Waiting requests are never cancelled and never time out; a request stays
// queued for as long as the capacity it needs is not released.
package resource

import (
	"fmt"
	"math"
	"sync"

	"github.com/sarchlab/flowsim/sim"
	"github.com/sirupsen/logrus"
)

// HookPosClaimed marks a change of the claimed capacity.
var HookPosClaimed = &sim.HookPos{Name: "Resource Claimed"}

// HookPosQueueLength marks a change of the number of waiting requests.
var HookPosQueueLength = &sim.HookPos{Name: "Resource Queue Length"}

// releaseTolerance absorbs floating point residue when the last claim is
// released.
const releaseTolerance = 1e-9

// Resource is a shared capacity pool.
//
// All mutations of the claimed capacity and of the queue happen in one
// critical section guarded by a mutex. Grant callbacks and hooks are collected
// in an outbox while the section runs and are delivered, in order, after the
// section has committed. A callback that calls back into the same Resource
// runs its own section right away, but the deliveries it produces wait until
// the callback returns.
type Resource[T sim.Time[T]] struct {
	*sim.HookableBase

	name       string
	timeTeller sim.TimeTeller[T]

	lock        sync.Mutex
	capacity    float64
	claimed     float64
	pending     []*Request[T]
	nextID      uint64
	seq         uint64
	outbox      []func()
	dispatching bool
}

// Name returns the name of the resource.
func (r *Resource[T]) Name() string {
	return r.name
}

func (r *Resource[T]) String() string {
	r.lock.Lock()
	defer r.lock.Unlock()

	return fmt.Sprintf("Resource %s[claimed=%v, capacity=%v, queue=%d]",
		r.name, r.claimed, r.capacity, len(r.pending))
}

// Capacity returns the total capacity.
func (r *Resource[T]) Capacity() float64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.capacity
}

// Claimed returns the capacity currently granted.
func (r *Resource[T]) Claimed() float64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.claimed
}

// Available returns the capacity that is not claimed.
func (r *Resource[T]) Available() float64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.capacity - r.claimed
}

// QueueLength returns the number of requests waiting for capacity.
func (r *Resource[T]) QueueLength() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.pending)
}

// PendingRequests returns a copy of the waiting requests, head first.
func (r *Resource[T]) PendingRequests() []Request[T] {
	r.lock.Lock()
	defer r.lock.Unlock()

	requests := make([]Request[T], 0, len(r.pending))
	for _, req := range r.pending {
		requests = append(requests, *req)
	}

	return requests
}

// RequestCapacity claims amount units for the requestor. If the capacity is
// available the requestor is granted right away; otherwise the request joins
// the tail of the queue.
func (r *Resource[T]) RequestCapacity(amount float64, requestor Requestor) error {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: cannot request %v from %s",
			ErrCapacity, amount, r.name)
	}

	if requestor == nil {
		panic("resource: requestor must not be nil")
	}

	now := r.timeTeller.CurrentTime()

	r.lock.Lock()

	r.nextID++
	req := &Request[T]{
		ID:           r.nextID,
		Amount:       amount,
		CreationTime: now,
		Requestor:    requestor,
	}

	if r.claimed+amount <= r.capacity {
		r.grant(req)
		r.notifyClaimed(now)
	} else {
		r.pending = append(r.pending, req)
		r.notifyQueueLength(now)
	}

	r.lock.Unlock()

	r.dispatch()

	return nil
}

// ReleaseCapacity returns amount units to the pool and grants waiting
// requests in arrival order. Releasing more than is claimed panics with
// ErrInvariantViolation.
func (r *Resource[T]) ReleaseCapacity(amount float64) error {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: cannot release %v to %s",
			ErrCapacity, amount, r.name)
	}

	now := r.timeTeller.CurrentTime()

	r.lock.Lock()

	claimed := r.claimed - amount
	if claimed < -releaseTolerance {
		r.lock.Unlock()
		panic(fmt.Errorf("%w: releasing %v from %s with %v claimed",
			ErrInvariantViolation, amount, r.name, r.claimed))
	}

	if claimed < 0 {
		claimed = 0
	}

	r.claimed = claimed
	r.scanPending(now)
	r.notifyClaimed(now)

	r.lock.Unlock()

	r.dispatch()

	return nil
}

// SetCapacity changes the total capacity. Growing the capacity grants waiting
// requests that now fit. Shrinking below the claimed capacity panics with
// ErrInvariantViolation.
func (r *Resource[T]) SetCapacity(capacity float64) error {
	if capacity < 0 || math.IsNaN(capacity) {
		return fmt.Errorf("%w: capacity %v for %s", ErrCapacity, capacity, r.name)
	}

	now := r.timeTeller.CurrentTime()

	r.lock.Lock()

	if capacity < r.claimed {
		r.lock.Unlock()
		panic(fmt.Errorf("%w: capacity %v of %s is below claimed %v",
			ErrInvariantViolation, capacity, r.name, r.claimed))
	}

	r.capacity = capacity
	r.scanPending(now)
	r.notifyClaimed(now)

	r.lock.Unlock()

	r.dispatch()

	return nil
}

// scanPending grants queued requests from the head until one does not fit.
// The caller must hold the lock.
func (r *Resource[T]) scanPending(now T) {
	granted := false

	for len(r.pending) > 0 {
		head := r.pending[0]
		if r.claimed+head.Amount > r.capacity {
			break
		}

		r.pending[0] = nil
		r.pending = r.pending[1:]
		r.grant(head)
		granted = true
	}

	if granted {
		r.notifyQueueLength(now)
	}
}

// grant claims the capacity of req and queues its callback. The caller must
// hold the lock.
func (r *Resource[T]) grant(req *Request[T]) {
	r.claimed += req.Amount

	r.mustHoldInvariant()

	requestor := req.Requestor
	amount := req.Amount
	r.outbox = append(r.outbox, func() { requestor.OnGranted(amount) })
}

func (r *Resource[T]) mustHoldInvariant() {
	if r.claimed < 0 || r.claimed > r.capacity {
		panic(fmt.Errorf("%w: %s claimed %v of %v",
			ErrInvariantViolation, r.name, r.claimed, r.capacity))
	}
}

func (r *Resource[T]) notifyClaimed(now T) {
	r.notify(HookPosClaimed, now)
}

func (r *Resource[T]) notifyQueueLength(now T) {
	r.notify(HookPosQueueLength, now)
}

// notify queues a hook invocation with a snapshot of the current state. The
// caller must hold the lock.
func (r *Resource[T]) notify(pos *sim.HookPos, now T) {
	if r.NumHooks() == 0 {
		return
	}

	r.seq++
	change := Change[T]{
		Time:        now,
		Seq:         r.seq,
		Capacity:    r.capacity,
		Claimed:     r.claimed,
		QueueLength: len(r.pending),
	}

	r.outbox = append(r.outbox, func() {
		r.InvokeHook(sim.HookCtx{
			Domain: r,
			Pos:    pos,
			Item:   change,
		})
	})
}

// dispatch delivers queued callbacks in order. Only the outermost call
// delivers; nested calls made from inside a callback return immediately and
// leave their deliveries to the outer loop. A panicking callback does not stop
// the loop: the remaining grants are delivered first, then the first panic
// continues.
func (r *Resource[T]) dispatch() {
	r.lock.Lock()

	if r.dispatching {
		r.lock.Unlock()
		return
	}

	r.dispatching = true

	var failure any

	for len(r.outbox) > 0 {
		next := r.outbox[0]
		r.outbox[0] = nil
		r.outbox = r.outbox[1:]

		r.lock.Unlock()

		if p := deliver(next); p != nil {
			if failure == nil {
				failure = p
			} else {
				logrus.WithField("resource", r.name).
					Warnf("callback panicked during an earlier panic: %v", p)
			}
		}

		r.lock.Lock()
	}

	r.dispatching = false
	r.lock.Unlock()

	if failure != nil {
		panic(failure)
	}
}

// deliver runs one callback and returns what it panicked with, if anything.
func deliver(next func()) (failure any) {
	defer func() {
		failure = recover()
	}()

	next()

	return nil
}
