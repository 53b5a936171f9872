package flow

import (
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/flowsim/resource"
	"github.com/sarchlab/flowsim/sim"
	"github.com/sirupsen/logrus"
)

// A CapacityClaimer hands out capacity to requestors.
type CapacityClaimer interface {
	RequestCapacity(amount float64, requestor resource.Requestor) error
}

// A CapacityReleaser takes back capacity.
type CapacityReleaser interface {
	ReleaseCapacity(amount float64) error
}

// Seize is a station where entities wait until a resource grants them
// capacity. Granted entities are forwarded to the destination.
type Seize[T sim.Time[T]] struct {
	*StationBase

	timeTeller        sim.TimeTeller[T]
	resource          CapacityClaimer
	requestedCapacity float64
	queue             *RequestQueue[T]
	nextID            uint64
	notifier          notifier[T]
}

// ticket links one grant back to the request that asked for it.
type ticket[T sim.Time[T]] struct {
	seize   *Seize[T]
	request *Request[T]
}

func (t *ticket[T]) OnGranted(amount float64) {
	t.seize.onGranted(t.request, amount)
}

// RequestedCapacity returns the amount claimed by Receive.
func (s *Seize[T]) RequestedCapacity() float64 {
	return s.requestedCapacity
}

// Queue returns the queue the station waits in.
func (s *Seize[T]) Queue() *RequestQueue[T] {
	return s.queue
}

// SetQueue makes the station wait in q. Stations that share a queue must be
// given the same q before any entity arrives.
func (s *Seize[T]) SetQueue(q *RequestQueue[T]) {
	if q == nil {
		panic("flow: queue must not be nil")
	}

	s.queue = q
}

// QueueLength returns the length of the queue the station waits in.
func (s *Seize[T]) QueueLength() int {
	return s.queue.Len()
}

// Receive claims the requested capacity for the entity.
func (s *Seize[T]) Receive(entity Entity) {
	s.ReceiveAmount(entity, s.requestedCapacity)
}

// ReceiveAmount claims amount units of capacity for the entity. A
// non-positive amount panics with resource.ErrCapacity. Failures after the
// request is queued are contained and reported through
// HookPosCallbackFailure.
func (s *Seize[T]) ReceiveAmount(entity Entity, amount float64) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		panic(fmt.Errorf("%w: %s cannot request %v for %s",
			resource.ErrCapacity, s.Name(), amount, entity))
	}

	defer s.containFailure(entity)

	now := s.timeTeller.CurrentTime()

	s.nextID++
	req := &Request[T]{
		ID:           s.nextID,
		Entity:       entity,
		Amount:       amount,
		CreationTime: now,
		Station:      s.Name(),
	}

	length := s.queue.push(req)
	s.notify(HookPosQueueLength, QueueLength, float64(length), now)

	err := s.resource.RequestCapacity(amount, &ticket[T]{seize: s, request: req})
	if err != nil {
		length, _ = s.queue.remove(req)
		s.notify(HookPosQueueLength, QueueLength, float64(length), now)
		s.reportFailure(entity, err)
	}
}

func (s *Seize[T]) onGranted(req *Request[T], _ float64) {
	defer s.containFailure(req.Entity)

	now := s.timeTeller.CurrentTime()

	length, found := s.queue.remove(req)
	if !found {
		s.reportFailure(req.Entity,
			fmt.Errorf("request %d of %s is not in the queue", req.ID, req.Entity))
		return
	}

	s.notify(HookPosQueueLength, QueueLength, float64(length), now)
	s.notify(HookPosDelayTime, DelayTime,
		now.Minus(req.CreationTime).Float64(), now)

	s.ReleaseEntity(req.Entity)
}

func (s *Seize[T]) notify(
	pos *sim.HookPos,
	kind NotificationKind,
	value float64,
	now T,
) {
	s.notifier.emit(s, s.StationBase, pos, kind, value, now)
}

// containFailure turns a panic into a reported failure. Invariant violations
// are not contained.
func (s *Seize[T]) containFailure(entity Entity) {
	p := recover()
	if p == nil {
		return
	}

	err, ok := p.(error)
	if !ok {
		err = fmt.Errorf("%v", p)
	}

	if errors.Is(err, resource.ErrInvariantViolation) {
		panic(p)
	}

	s.reportFailure(entity, err)
}

func (s *Seize[T]) reportFailure(entity Entity, cause error) {
	now := s.timeTeller.CurrentTime()
	err := fmt.Errorf("%w: %s handling %s: %w",
		ErrCallbackFailure, s.Name(), entity, cause)

	logrus.WithFields(logrus.Fields{
		"station": s.Name(),
		"entity":  entity.String(),
		"time":    now,
	}).Warn(err)

	s.InvokeHook(sim.HookCtx{
		Domain: s,
		Pos:    HookPosCallbackFailure,
		Item: Failure[T]{
			Station: s.Name(),
			Entity:  entity,
			Time:    now,
			Err:     err,
		},
	})
}

// SeizeBuilder can build Seize stations.
type SeizeBuilder[T sim.Time[T]] struct {
	timeTeller        sim.TimeTeller[T]
	resource          CapacityClaimer
	requestedCapacity float64
	queue             *RequestQueue[T]
}

// MakeSeizeBuilder creates a SeizeBuilder that requests one unit per entity.
func MakeSeizeBuilder[T sim.Time[T]]() SeizeBuilder[T] {
	return SeizeBuilder[T]{
		requestedCapacity: 1.0,
	}
}

// WithTimeTeller sets the clock used to measure waiting times.
func (b SeizeBuilder[T]) WithTimeTeller(tt sim.TimeTeller[T]) SeizeBuilder[T] {
	b.timeTeller = tt
	return b
}

// WithResource sets the resource to claim capacity from.
func (b SeizeBuilder[T]) WithResource(r CapacityClaimer) SeizeBuilder[T] {
	b.resource = r
	return b
}

// WithRequestedCapacity sets the amount claimed for every entity.
func (b SeizeBuilder[T]) WithRequestedCapacity(amount float64) SeizeBuilder[T] {
	b.requestedCapacity = amount
	return b
}

// WithQueue makes the Seize wait in a shared queue.
func (b SeizeBuilder[T]) WithQueue(q *RequestQueue[T]) SeizeBuilder[T] {
	b.queue = q
	return b
}

func (b SeizeBuilder[T]) parametersMustBeValid() {
	if b.timeTeller == nil {
		panic("flow: time teller is not set")
	}

	if b.resource == nil {
		panic("flow: resource is not set")
	}

	if b.requestedCapacity <= 0 || math.IsNaN(b.requestedCapacity) {
		panic(fmt.Errorf("%w: requested capacity %v",
			resource.ErrCapacity, b.requestedCapacity))
	}
}

// Build creates a Seize with the given name.
func (b SeizeBuilder[T]) Build(name string) *Seize[T] {
	b.parametersMustBeValid()

	s := &Seize[T]{
		StationBase:       NewStationBase(name),
		timeTeller:        b.timeTeller,
		resource:          b.resource,
		requestedCapacity: b.requestedCapacity,
		queue:             b.queue,
	}

	if s.queue == nil {
		s.queue = NewRequestQueue[T]()
	}

	return s
}

var _ Station = (*Seize[sim.VTimeInSec])(nil)
