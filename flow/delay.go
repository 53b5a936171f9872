package flow

import (
	"fmt"

	"github.com/sarchlab/flowsim/sim"
)

type delayEndEvent struct {
	entity Entity
}

// Delay holds every entity for a sampled duration before forwarding it.
type Delay[T sim.Time[T]] struct {
	*StationBase

	engine    sim.EventScheduler[T]
	duration  func() T
	inService int
	notifier  notifier[T]
}

// InService returns the number of entities currently held.
func (d *Delay[T]) InService() int {
	return d.inService
}

// Receive starts holding the entity.
func (d *Delay[T]) Receive(entity Entity) {
	now := d.engine.CurrentTime()

	duration := d.duration()
	if duration.Sign() < 0 {
		panic(fmt.Sprintf("%s: negative delay %v", d.Name(), duration))
	}

	d.inService++
	d.notifier.emit(d, d.StationBase, HookPosInService, InService,
		float64(d.inService), now)

	d.engine.Schedule(sim.ScheduledEvent[T]{
		Event:   &delayEndEvent{entity: entity},
		Time:    now.Plus(duration),
		Handler: d,
	})
}

// Handle ends a delay.
func (d *Delay[T]) Handle(evt any) error {
	switch e := evt.(type) {
	case *delayEndEvent:
		d.inService--
		d.notifier.emit(d, d.StationBase, HookPosInService, InService,
			float64(d.inService), d.engine.CurrentTime())
		d.ReleaseEntity(e.entity)
	default:
		return fmt.Errorf("unknown event type: %T", evt)
	}

	return nil
}

// DelayBuilder can build Delay stations.
type DelayBuilder[T sim.Time[T]] struct {
	engine   sim.EventScheduler[T]
	duration func() T
}

// MakeDelayBuilder creates a DelayBuilder.
func MakeDelayBuilder[T sim.Time[T]]() DelayBuilder[T] {
	return DelayBuilder[T]{}
}

// WithEngine sets the engine the delay schedules on.
func (b DelayBuilder[T]) WithEngine(e sim.EventScheduler[T]) DelayBuilder[T] {
	b.engine = e
	return b
}

// WithDuration sets the function sampled once per entity.
func (b DelayBuilder[T]) WithDuration(f func() T) DelayBuilder[T] {
	b.duration = f
	return b
}

// WithFixedDuration makes every entity wait for d.
func (b DelayBuilder[T]) WithFixedDuration(d T) DelayBuilder[T] {
	b.duration = func() T { return d }
	return b
}

// Build creates a Delay with the given name.
func (b DelayBuilder[T]) Build(name string) *Delay[T] {
	if b.engine == nil {
		panic("flow: engine is not set")
	}

	if b.duration == nil {
		panic("flow: duration is not set")
	}

	return &Delay[T]{
		StationBase: NewStationBase(name),
		engine:      b.engine,
		duration:    b.duration,
	}
}

var _ Station = (*Delay[sim.VTimeInSec])(nil)
