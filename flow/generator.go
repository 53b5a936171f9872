package flow

import (
	"fmt"

	"github.com/sarchlab/flowsim/sim"
)

type generateEvent struct{}

// Generator creates entities in batches at sampled intervals and forwards
// them. Entities received from upstream are forwarded unchanged.
type Generator[T sim.Time[T]] struct {
	*StationBase

	engine    sim.EventScheduler[T]
	source    *EntitySource
	startTime func() T
	interval  func() T
	batchSize func() int
	maxNumber int
	generated int
	started   bool
}

// Generated returns the number of entities created so far.
func (g *Generator[T]) Generated() int {
	return g.generated
}

// Start schedules the first batch. The start time is an offset from the
// current time. Calling Start twice panics.
func (g *Generator[T]) Start() {
	if g.started {
		panic(fmt.Sprintf("%s: already started", g.Name()))
	}

	g.started = true
	g.scheduleAfter(g.startTime())
}

// Receive forwards the entity.
func (g *Generator[T]) Receive(entity Entity) {
	g.ReleaseEntity(entity)
}

// Handle creates one batch and schedules the next one.
func (g *Generator[T]) Handle(evt any) error {
	switch evt.(type) {
	case *generateEvent:
		g.generate()
	default:
		return fmt.Errorf("unknown event type: %T", evt)
	}

	return nil
}

func (g *Generator[T]) generate() {
	n := g.batchSize()
	for i := 0; i < n && !g.exhausted(); i++ {
		g.generated++
		g.ReleaseEntity(g.source.Next())
	}

	if !g.exhausted() {
		g.scheduleAfter(g.interval())
	}
}

func (g *Generator[T]) exhausted() bool {
	return g.maxNumber >= 0 && g.generated >= g.maxNumber
}

func (g *Generator[T]) scheduleAfter(d T) {
	if d.Sign() < 0 {
		panic(fmt.Sprintf("%s: negative interval %v", g.Name(), d))
	}

	g.engine.Schedule(sim.ScheduledEvent[T]{
		Event:   &generateEvent{},
		Time:    g.engine.CurrentTime().Plus(d),
		Handler: g,
	})
}

// GeneratorBuilder can build Generators.
type GeneratorBuilder[T sim.Time[T]] struct {
	engine    sim.EventScheduler[T]
	source    *EntitySource
	startTime func() T
	interval  func() T
	batchSize func() int
	maxNumber int
}

// MakeGeneratorBuilder creates a GeneratorBuilder that creates one entity per
// batch, starts right away and never stops.
func MakeGeneratorBuilder[T sim.Time[T]]() GeneratorBuilder[T] {
	return GeneratorBuilder[T]{
		startTime: func() T {
			var zero T
			return zero
		},
		batchSize: func() int { return 1 },
		maxNumber: -1,
	}
}

// WithEngine sets the engine the generator schedules on.
func (b GeneratorBuilder[T]) WithEngine(
	e sim.EventScheduler[T],
) GeneratorBuilder[T] {
	b.engine = e
	return b
}

// WithEntitySource sets where entity handles come from.
func (b GeneratorBuilder[T]) WithEntitySource(
	s *EntitySource,
) GeneratorBuilder[T] {
	b.source = s
	return b
}

// WithStartTime sets the offset of the first batch.
func (b GeneratorBuilder[T]) WithStartTime(f func() T) GeneratorBuilder[T] {
	b.startTime = f
	return b
}

// WithInterval sets the time between batches.
func (b GeneratorBuilder[T]) WithInterval(f func() T) GeneratorBuilder[T] {
	b.interval = f
	return b
}

// WithBatchSize sets the number of entities per batch.
func (b GeneratorBuilder[T]) WithBatchSize(f func() int) GeneratorBuilder[T] {
	b.batchSize = f
	return b
}

// WithMaxNumber limits the number of entities created. A negative number
// means no limit.
func (b GeneratorBuilder[T]) WithMaxNumber(n int) GeneratorBuilder[T] {
	b.maxNumber = n
	return b
}

// Build creates a Generator with the given name.
func (b GeneratorBuilder[T]) Build(name string) *Generator[T] {
	if b.engine == nil {
		panic("flow: engine is not set")
	}

	if b.interval == nil {
		panic("flow: interval is not set")
	}

	g := &Generator[T]{
		StationBase: NewStationBase(name),
		engine:      b.engine,
		source:      b.source,
		startTime:   b.startTime,
		interval:    b.interval,
		batchSize:   b.batchSize,
		maxNumber:   b.maxNumber,
	}

	if g.source == nil {
		g.source = NewEntitySource()
	}

	return g
}

var _ Station = (*Generator[sim.VTimeInSec])(nil)
