package experiment

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"github.com/rs/xid"
	"github.com/sarchlab/flowsim/sim"
	"github.com/sarchlab/flowsim/stats"
	"github.com/sirupsen/logrus"
)

// HookPosWarmup marks the end of the warmup period of a replication.
var HookPosWarmup = &sim.HookPos{Name: "Warmup"}

// HookPosReplicationEnd marks the end of a replication. The Item is the
// ReplicationResult.
var HookPosReplicationEnd = &sim.HookPos{Name: "Replication End"}

type warmupEvent struct{}

// Replication is one independent run of a model. It owns the engine, the
// random streams and the statistics of the run.
type Replication[T sim.Time[T]] struct {
	*sim.HookableBase

	id         string
	index      int
	seed       uint64
	runControl *RunControl[T]
	engine     *sim.SerialEngine[T]
	statistics *stats.Registry[T]
	ids        sim.IDGenerator
	streams    map[string]*rand.Rand
	ran        bool
}

// NewReplication creates a replication whose engine starts at the start time
// of rc.
func NewReplication[T sim.Time[T]](
	index int,
	seed uint64,
	rc *RunControl[T],
) *Replication[T] {
	if rc == nil {
		panic("experiment: run control is not set")
	}

	return &Replication[T]{
		HookableBase: sim.NewHookableBase(),
		id:           xid.New().String(),
		index:        index,
		seed:         seed,
		runControl:   rc,
		engine:       sim.NewSerialEngineAt(rc.StartSimTime()),
		statistics:   stats.NewRegistry[T](),
		ids:          sim.NewSequentialIDGenerator(),
		streams:      make(map[string]*rand.Rand),
	}
}

// ID returns the unique id of the replication.
func (r *Replication[T]) ID() string { return r.id }

// Index returns the position of the replication in its experiment.
func (r *Replication[T]) Index() int { return r.index }

// Seed returns the seed the random streams derive from.
func (r *Replication[T]) Seed() uint64 { return r.seed }

// RunControl returns the time boundaries of the replication.
func (r *Replication[T]) RunControl() *RunControl[T] { return r.runControl }

// Engine returns the engine of the replication.
func (r *Replication[T]) Engine() *sim.SerialEngine[T] { return r.engine }

// Statistics returns the statistics that are reset at the end of the warmup
// period and summarized at the end of the run.
func (r *Replication[T]) Statistics() *stats.Registry[T] { return r.statistics }

// IDGenerator returns a generator of ids that are deterministic within the
// replication.
func (r *Replication[T]) IDGenerator() sim.IDGenerator { return r.ids }

// Stream returns the random stream with the given name. Streams depend only
// on the seed and the name, so adding a stream does not change the others.
// The same name always returns the same stream.
func (r *Replication[T]) Stream(name string) *rand.Rand {
	if s, found := r.streams[name]; found {
		return s
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(name))

	s := rand.New(rand.NewPCG(r.seed, h.Sum64()))
	r.streams[name] = s

	return s
}

// Run runs the replication until its end time. Cancelling ctx stops the
// engine after the event being processed. A replication can only run once.
func (r *Replication[T]) Run(ctx context.Context) (ReplicationResult, error) {
	if r.ran {
		panic(fmt.Sprintf("replication %s already ran", r.id))
	}

	r.ran = true

	r.engine.Schedule(sim.ScheduledEvent[T]{
		Event:   &warmupEvent{},
		Time:    r.runControl.WarmupSimTime(),
		Handler: r,
	})

	stop := context.AfterFunc(ctx, r.engine.Terminate)
	defer stop()

	logrus.Debugf("replication %d (%s) of %s starts", r.index, r.id, r.runControl)

	end := r.runControl.EndSimTime()

	err := r.engine.RunUntil(end)
	if errors.Is(err, sim.ErrEngineTerminated) && ctx.Err() != nil {
		return ReplicationResult{}, fmt.Errorf("replication %d: %w", r.index, ctx.Err())
	}

	if err != nil {
		return ReplicationResult{}, fmt.Errorf("replication %d: %w", r.index, err)
	}

	result := ReplicationResult{
		ID:         r.id,
		Index:      r.index,
		Seed:       r.seed,
		RunControl: r.runControl.ID(),
		Statistics: r.statistics.Summarize(end),
	}

	logrus.Debugf("replication %d (%s) ends at %v", r.index, r.id, end)

	r.InvokeHook(sim.HookCtx{
		Domain: r,
		Pos:    HookPosReplicationEnd,
		Item:   result,
	})

	return result, nil
}

// Handle resets the statistics at the end of the warmup period.
func (r *Replication[T]) Handle(evt any) error {
	switch evt.(type) {
	case *warmupEvent:
		now := r.engine.CurrentTime()
		r.statistics.Reset(now)

		r.InvokeHook(sim.HookCtx{
			Domain: r,
			Pos:    HookPosWarmup,
			Item:   now,
		})
	default:
		return fmt.Errorf("unknown event type: %T", evt)
	}

	return nil
}

// ReplicationResult holds the statistics of one finished replication.
type ReplicationResult struct {
	ID         string
	Index      int
	Seed       uint64
	RunControl string
	Statistics []stats.Summary
}

// Statistic returns the summary of the statistic with the given name.
func (r ReplicationResult) Statistic(name string) (stats.Summary, bool) {
	for _, s := range r.Statistics {
		if s.Name == name {
			return s, true
		}
	}

	return stats.Summary{}, false
}
