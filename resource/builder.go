package resource

import (
	"fmt"
	"math"

	"github.com/sarchlab/flowsim/sim"
)

// Builder can build Resources.
type Builder[T sim.Time[T]] struct {
	timeTeller sim.TimeTeller[T]
	capacity   float64
}

// MakeBuilder creates a Builder with a capacity of 1.
func MakeBuilder[T sim.Time[T]]() Builder[T] {
	return Builder[T]{
		capacity: 1.0,
	}
}

// WithTimeTeller sets the clock used to timestamp requests.
func (b Builder[T]) WithTimeTeller(tt sim.TimeTeller[T]) Builder[T] {
	b.timeTeller = tt
	return b
}

// WithCapacity sets the total capacity of the resource.
func (b Builder[T]) WithCapacity(capacity float64) Builder[T] {
	b.capacity = capacity
	return b
}

func (b Builder[T]) parametersMustBeValid() {
	if b.timeTeller == nil {
		panic("resource: time teller is not set")
	}

	if b.capacity < 0 || math.IsNaN(b.capacity) {
		panic(fmt.Errorf("%w: capacity %v", ErrCapacity, b.capacity))
	}
}

// Build creates a Resource with the given name.
func (b Builder[T]) Build(name string) *Resource[T] {
	b.parametersMustBeValid()

	return &Resource[T]{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		timeTeller:   b.timeTeller,
		capacity:     b.capacity,
	}
}
