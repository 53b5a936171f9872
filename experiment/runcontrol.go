package experiment

import (
	"fmt"
	"math"

	"github.com/sarchlab/flowsim/sim"
)

// RunControl holds the time boundaries of one replication. It is immutable
// except for its description.
type RunControl[T sim.Time[T]] struct {
	id          string
	description string
	start       T
	warmup      T
	end         T
}

// RunControlKey is the comparable identity of a RunControl. It can key maps.
type RunControlKey[T sim.Time[T]] struct {
	ID     string
	Start  T
	Warmup T
	End    T
}

// NewRunControl validates the run boundaries and creates a RunControl. Nil
// arguments count as missing, and so do NaN and infinite values. The warmup
// period must not be negative, the run length must be positive, and the warmup
// period must be shorter than the run length. The description starts as the
// id.
func NewRunControl[T sim.Time[T]](
	id string,
	start, warmupPeriod, runLength *T,
) (*RunControl[T], error) {
	switch {
	case id == "":
		return nil, fmt.Errorf("%w: run control id is missing", ErrConfiguration)
	case start == nil:
		return nil, fmt.Errorf("%w: %s: start time is missing",
			ErrConfiguration, id)
	case warmupPeriod == nil:
		return nil, fmt.Errorf("%w: %s: warmup period is missing",
			ErrConfiguration, id)
	case runLength == nil:
		return nil, fmt.Errorf("%w: %s: run length is missing",
			ErrConfiguration, id)
	}

	s, w, l := *start, *warmupPeriod, *runLength

	for _, v := range []struct {
		what  string
		value T
	}{{"start time", s}, {"warmup period", w}, {"run length", l}} {
		if f := v.value.Float64(); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %s: %s %v is not finite",
				ErrConfiguration, id, v.what, v.value)
		}
	}

	if w.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s: warmup period %v is negative",
			ErrConfiguration, id, w)
	}

	if l.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s: run length %v is not positive",
			ErrConfiguration, id, l)
	}

	if w.Compare(l) >= 0 {
		return nil, fmt.Errorf(
			"%w: %s: warmup period %v is not shorter than run length %v",
			ErrConfiguration, id, w, l)
	}

	return &RunControl[T]{
		id:          id,
		description: id,
		start:       s,
		warmup:      s.Plus(w),
		end:         s.Plus(l),
	}, nil
}

// MakeRunControl is NewRunControl for callers that hold all the values.
func MakeRunControl[T sim.Time[T]](
	id string,
	start, warmupPeriod, runLength T,
) (*RunControl[T], error) {
	return NewRunControl(id, &start, &warmupPeriod, &runLength)
}

// ID returns the id of the run control.
func (r *RunControl[T]) ID() string { return r.id }

// Description returns the display label.
func (r *RunControl[T]) Description() string { return r.description }

// SetDescription changes the display label.
func (r *RunControl[T]) SetDescription(description string) {
	r.description = description
}

// StartSimTime returns the time the replication starts at.
func (r *RunControl[T]) StartSimTime() T { return r.start }

// WarmupSimTime returns the time statistics start being collected.
func (r *RunControl[T]) WarmupSimTime() T { return r.warmup }

// EndSimTime returns the time the replication ends at.
func (r *RunControl[T]) EndSimTime() T { return r.end }

// Key returns the comparable identity of the run control. Times are stored in
// canonical form, so the same instants in different display units give equal
// keys.
func (r *RunControl[T]) Key() RunControlKey[T] {
	return RunControlKey[T]{
		ID:     r.id,
		Start:  sim.Canonical(r.start),
		Warmup: sim.Canonical(r.warmup),
		End:    sim.Canonical(r.end),
	}
}

// Equal returns true if both run controls have the same id and boundaries.
// Descriptions are not compared.
func (r *RunControl[T]) Equal(o *RunControl[T]) bool {
	if r == nil || o == nil {
		return r == o
	}

	return r.Key() == o.Key()
}

func (r *RunControl[T]) String() string {
	return "RunControl " + r.id
}

// clone returns an independent copy for one replication.
func (r *RunControl[T]) clone() *RunControl[T] {
	c := *r
	return &c
}
