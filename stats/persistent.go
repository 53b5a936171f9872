package stats

import (
	"math"

	"github.com/sarchlab/flowsim/sim"
)

// Persistent summarizes a quantity that holds its value until the next
// change, such as a queue length. Each value weighs as long as it was held.
type Persistent[T sim.Time[T]] struct {
	start     T
	lastTime  T
	lastValue float64
	area      float64
	min       float64
	max       float64
	n         int
}

// NewPersistent creates a Persistent that starts observing at start with a
// value of 0.
func NewPersistent[T sim.Time[T]](start T) *Persistent[T] {
	p := &Persistent[T]{}
	p.Reset(start)

	return p
}

// Register records that the value changed to v at time now. Changes must be
// registered in time order.
func (p *Persistent[T]) Register(now T, v float64) {
	if now.Compare(p.lastTime) < 0 {
		panic("stats: change registered out of time order")
	}

	p.area += p.lastValue * now.Minus(p.lastTime).Float64()
	p.lastTime = now
	p.lastValue = v
	p.n++

	p.min = math.Min(p.min, v)
	p.max = math.Max(p.max, v)
}

// Reset restarts the observation at now. The current value is kept.
func (p *Persistent[T]) Reset(now T) {
	p.start = now
	p.lastTime = now
	p.area = 0
	p.n = 0
	p.min = p.lastValue
	p.max = p.lastValue
}

// N returns the number of changes registered since the last reset.
func (p *Persistent[T]) N() int { return p.n }

// Current returns the value held now.
func (p *Persistent[T]) Current() float64 { return p.lastValue }

// Min returns the smallest value held since the last reset.
func (p *Persistent[T]) Min() float64 { return p.min }

// Max returns the largest value held since the last reset.
func (p *Persistent[T]) Max() float64 { return p.max }

// Mean returns the time-weighted mean up to now. It returns the current value
// if no time has passed since the last reset.
func (p *Persistent[T]) Mean(now T) float64 {
	span := now.Minus(p.start).Float64()
	if span <= 0 {
		return p.lastValue
	}

	area := p.area + p.lastValue*now.Minus(p.lastTime).Float64()

	return area / span
}
