package experiment

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sarchlab/flowsim/sim"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// A ModelBuilder assembles the stations, resources and statistics of a model
// into a replication.
type ModelBuilder[T sim.Time[T]] interface {
	BuildModel(r *Replication[T]) error
}

// ModelBuilderFunc adapts a function to a ModelBuilder.
type ModelBuilderFunc[T sim.Time[T]] func(r *Replication[T]) error

// BuildModel calls f(r).
func (f ModelBuilderFunc[T]) BuildModel(r *Replication[T]) error {
	return f(r)
}

// Experiment runs independent replications of a model, some of them side by
// side.
type Experiment[T sim.Time[T]] struct {
	runControl   *RunControl[T]
	replications int
	parallelism  int
	seed         uint64
	model        ModelBuilder[T]
	observers    []sim.Hook
}

// NumReplications returns the number of replications.
func (e *Experiment[T]) NumReplications() int { return e.replications }

// Parallelism returns the number of replications that may run at once.
func (e *Experiment[T]) Parallelism() int { return e.parallelism }

// Seed returns the seed of the experiment. Replication i uses seed + i.
func (e *Experiment[T]) Seed() uint64 { return e.seed }

// RunControl returns the template every replication copies.
func (e *Experiment[T]) RunControl() *RunControl[T] { return e.runControl }

// Run runs all the replications and returns their results in replication
// order. The first failure cancels the replications that are still running.
func (e *Experiment[T]) Run(ctx context.Context) ([]ReplicationResult, error) {
	results := make([]ReplicationResult, e.replications)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for i := 0; i < e.replications; i++ {
		g.Go(func() error {
			result, err := e.runReplication(ctx, i)
			if err != nil {
				return err
			}

			results[i] = result

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logrus.Infof("experiment %s finished %d replications",
		e.runControl.ID(), e.replications)

	return results, nil
}

func (e *Experiment[T]) runReplication(
	ctx context.Context,
	index int,
) (ReplicationResult, error) {
	if err := ctx.Err(); err != nil {
		return ReplicationResult{}, err
	}

	rep := NewReplication(index, e.seed+uint64(index), e.runControl.clone())
	for _, o := range e.observers {
		rep.AcceptHook(o)
	}

	if err := e.model.BuildModel(rep); err != nil {
		return ReplicationResult{}, fmt.Errorf("building replication %d: %w",
			index, err)
	}

	return rep.Run(ctx)
}

// Builder can build Experiments.
type Builder[T sim.Time[T]] struct {
	runControl   *RunControl[T]
	replications int
	parallelism  int
	seed         uint64
	model        ModelBuilder[T]
	observers    []sim.Hook
}

// MakeBuilder creates a Builder for one replication that uses all CPUs.
func MakeBuilder[T sim.Time[T]]() Builder[T] {
	return Builder[T]{
		replications: 1,
		parallelism:  runtime.GOMAXPROCS(0),
		seed:         1,
	}
}

// WithRunControl sets the run boundaries of every replication.
func (b Builder[T]) WithRunControl(rc *RunControl[T]) Builder[T] {
	b.runControl = rc
	return b
}

// WithReplications sets the number of replications.
func (b Builder[T]) WithReplications(n int) Builder[T] {
	b.replications = n
	return b
}

// WithParallelism sets the number of replications that may run at once.
func (b Builder[T]) WithParallelism(n int) Builder[T] {
	b.parallelism = n
	return b
}

// WithSeed sets the seed of the first replication.
func (b Builder[T]) WithSeed(seed uint64) Builder[T] {
	b.seed = seed
	return b
}

// WithModel sets the model every replication is built from.
func (b Builder[T]) WithModel(m ModelBuilder[T]) Builder[T] {
	b.model = m
	return b
}

// WithReplicationHook adds a hook to every replication, for example to
// record results as they finish.
func (b Builder[T]) WithReplicationHook(h sim.Hook) Builder[T] {
	b.observers = append(b.observers[:len(b.observers):len(b.observers)], h)
	return b
}

func (b Builder[T]) parametersMustBeValid() {
	if b.runControl == nil {
		panic("experiment: run control is not set")
	}

	if b.model == nil {
		panic("experiment: model is not set")
	}

	if b.replications <= 0 {
		panic(fmt.Sprintf("experiment: %d replications", b.replications))
	}

	if b.parallelism <= 0 {
		panic(fmt.Sprintf("experiment: parallelism %d", b.parallelism))
	}
}

// Build creates an Experiment.
func (b Builder[T]) Build() *Experiment[T] {
	b.parametersMustBeValid()

	return &Experiment[T]{
		runControl:   b.runControl,
		replications: b.replications,
		parallelism:  b.parallelism,
		seed:         b.seed,
		model:        b.model,
		observers:    b.observers,
	}
}
