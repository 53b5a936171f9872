package stats

import (
	"sort"
	"sync"

	"github.com/sarchlab/flowsim/flow"
	"github.com/sarchlab/flowsim/resource"
	"github.com/sarchlab/flowsim/sim"
)

// Summary is the state of one statistic at the end of an observation period.
type Summary struct {
	Name   string  `structs:"name"`
	Kind   string  `structs:"kind"`
	N      int     `structs:"n"`
	Mean   float64 `structs:"mean"`
	StdDev float64 `structs:"std_dev"`
	Min    float64 `structs:"min"`
	Max    float64 `structs:"max"`
}

// A Statistic is a collector that can be restarted and summarized.
type Statistic[T sim.Time[T]] interface {
	Name() string
	Reset(now T)
	Summarize(now T) Summary
}

// A Collector is a Statistic that is fed by hooks.
type Collector[T sim.Time[T]] interface {
	Statistic[T]
	sim.Hook
}

// TallyCollector tallies the values of the station notifications invoked at
// one hook position, for example the waiting times of a Seize.
type TallyCollector[T sim.Time[T]] struct {
	*Tally

	name string
	pos  *sim.HookPos
}

// NewTallyCollector creates a TallyCollector listening at pos.
func NewTallyCollector[T sim.Time[T]](
	name string,
	pos *sim.HookPos,
) *TallyCollector[T] {
	return &TallyCollector[T]{
		Tally: NewTally(),
		name:  name,
		pos:   pos,
	}
}

// Name returns the name of the statistic.
func (c *TallyCollector[T]) Name() string { return c.name }

// Func registers the value of a notification.
func (c *TallyCollector[T]) Func(ctx sim.HookCtx) {
	if ctx.Pos != c.pos {
		return
	}

	n, ok := ctx.Item.(flow.Notification[T])
	if !ok {
		return
	}

	c.Register(n.Value)
}

// Reset forgets all observations.
func (c *TallyCollector[T]) Reset(_ T) { c.Tally.Reset() }

// Summarize reports the tally.
func (c *TallyCollector[T]) Summarize(_ T) Summary {
	return Summary{
		Name:   c.name,
		Kind:   "tally",
		N:      c.N(),
		Mean:   c.Mean(),
		StdDev: c.StdDev(),
		Min:    c.Min(),
		Max:    c.Max(),
	}
}

// PersistentCollector tracks the time-weighted value of station
// notifications invoked at one hook position, for example a queue length.
type PersistentCollector[T sim.Time[T]] struct {
	*Persistent[T]

	name string
	pos  *sim.HookPos
}

// NewPersistentCollector creates a PersistentCollector listening at pos.
func NewPersistentCollector[T sim.Time[T]](
	name string,
	pos *sim.HookPos,
	start T,
) *PersistentCollector[T] {
	return &PersistentCollector[T]{
		Persistent: NewPersistent(start),
		name:       name,
		pos:        pos,
	}
}

// Name returns the name of the statistic.
func (c *PersistentCollector[T]) Name() string { return c.name }

// Func registers the value of a notification.
func (c *PersistentCollector[T]) Func(ctx sim.HookCtx) {
	if ctx.Pos != c.pos {
		return
	}

	n, ok := ctx.Item.(flow.Notification[T])
	if !ok {
		return
	}

	c.Register(n.Time, n.Value)
}

// Summarize reports the time-weighted mean up to now.
func (c *PersistentCollector[T]) Summarize(now T) Summary {
	return summarizePersistent(c.name, c.Persistent, now)
}

// Utilization tracks the fraction of the capacity of a resource that is
// claimed, weighted by time.
type Utilization[T sim.Time[T]] struct {
	*Persistent[T]

	name string
}

// NewUtilization creates a Utilization collector. Register it as a hook on
// a Resource.
func NewUtilization[T sim.Time[T]](name string, start T) *Utilization[T] {
	return &Utilization[T]{
		Persistent: NewPersistent(start),
		name:       name,
	}
}

// Name returns the name of the statistic.
func (u *Utilization[T]) Name() string { return u.name }

// Func registers the utilization after a change of the claimed capacity.
func (u *Utilization[T]) Func(ctx sim.HookCtx) {
	if ctx.Pos != resource.HookPosClaimed {
		return
	}

	change, ok := ctx.Item.(resource.Change[T])
	if !ok {
		return
	}

	u.Register(change.Time, change.Utilization())
}

// Summarize reports the time-weighted utilization up to now.
func (u *Utilization[T]) Summarize(now T) Summary {
	s := summarizePersistent(u.name, u.Persistent, now)
	s.Kind = "utilization"

	return s
}

func summarizePersistent[T sim.Time[T]](
	name string,
	p *Persistent[T],
	now T,
) Summary {
	return Summary{
		Name: name,
		Kind: "persistent",
		N:    p.N(),
		Mean: p.Mean(now),
		Min:  p.Min(),
		Max:  p.Max(),
	}
}

// Registry keeps the statistics of one replication.
type Registry[T sim.Time[T]] struct {
	lock  sync.Mutex
	stats map[string]Statistic[T]
}

// NewRegistry creates an empty Registry.
func NewRegistry[T sim.Time[T]]() *Registry[T] {
	return &Registry[T]{
		stats: make(map[string]Statistic[T]),
	}
}

// Add registers a statistic. Names must be unique.
func (r *Registry[T]) Add(s Statistic[T]) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, found := r.stats[s.Name()]; found {
		panic("stats: duplicated statistic " + s.Name())
	}

	r.stats[s.Name()] = s
}

// Get returns the statistic with the given name.
func (r *Registry[T]) Get(name string) (Statistic[T], bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	s, found := r.stats[name]

	return s, found
}

// Len returns the number of registered statistics.
func (r *Registry[T]) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.stats)
}

// Reset restarts every statistic at now.
func (r *Registry[T]) Reset(now T) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, s := range r.stats {
		s.Reset(now)
	}
}

// Summarize reports every statistic, sorted by name.
func (r *Registry[T]) Summarize(now T) []Summary {
	r.lock.Lock()
	defer r.lock.Unlock()

	summaries := make([]Summary, 0, len(r.stats))
	for _, s := range r.stats {
		summaries = append(summaries, s.Summarize(now))
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})

	return summaries
}

var (
	_ Collector[sim.VTimeInSec] = (*TallyCollector[sim.VTimeInSec])(nil)
	_ Collector[sim.VTimeInSec] = (*PersistentCollector[sim.VTimeInSec])(nil)
	_ Collector[sim.VTimeInSec] = (*Utilization[sim.VTimeInSec])(nil)
)
