package flow

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/flowsim/resource"
	"github.com/sarchlab/flowsim/sim"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Release", func() {
	var (
		mockCtrl *gomock.Controller
		releaser *MockCapacityReleaser
		dst      *MockStation
		release  *Release
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		releaser = NewMockCapacityReleaser(mockCtrl)
		dst = NewMockStation(mockCtrl)
		release = NewRelease("Release", releaser, 2)
		release.SetDestination(dst)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should release and forward", func() {
		gomock.InOrder(
			releaser.EXPECT().ReleaseCapacity(2.0).Return(nil),
			dst.EXPECT().Receive(Entity(3)),
		)

		release.Receive(3)
	})

	It("should forward even if the release fails", func() {
		releaser.EXPECT().ReleaseCapacity(2.0).Return(errors.New("rejected"))
		dst.EXPECT().Receive(Entity(3))

		release.Receive(3)
	})

	It("should panic on a non-positive amount", func() {
		Expect(func() { NewRelease("R", releaser, 0) }).
			To(PanicWith(MatchError(resource.ErrCapacity)))
	})
})

var _ = Describe("Delay", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *sim.SerialEngine[sim.VTimeInSec]
		dst      *MockStation
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = sim.NewSerialEngine[sim.VTimeInSec]()
		dst = NewMockStation(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should hold entities for the sampled duration", func() {
		durations := []sim.VTimeInSec{3, 1}
		delay := MakeDelayBuilder[sim.VTimeInSec]().
			WithEngine(engine).
			WithDuration(func() sim.VTimeInSec {
				d := durations[0]
				durations = durations[1:]
				return d
			}).
			Build("Delay")
		delay.SetDestination(dst)

		rec := &hookRecorder{}
		delay.AcceptHook(rec)

		var arrivals []sim.VTimeInSec
		dst.EXPECT().Receive(gomock.Any()).
			Do(func(Entity) {
				arrivals = append(arrivals, engine.CurrentTime())
			}).
			Times(2)

		delay.Receive(1)
		delay.Receive(2)
		Expect(delay.InService()).To(Equal(2))

		Expect(engine.Run()).To(Succeed())

		Expect(arrivals).To(Equal([]sim.VTimeInSec{1, 3}))
		Expect(delay.InService()).To(Equal(0))
		Expect(rec.values(InService)).To(Equal([]float64{1, 2, 1, 0}))
	})

	It("should reject unknown events", func() {
		delay := MakeDelayBuilder[sim.VTimeInSec]().
			WithEngine(engine).
			WithFixedDuration(1).
			Build("Delay")

		Expect(delay.Handle("something")).NotTo(Succeed())
	})

	It("should panic on a negative duration", func() {
		delay := MakeDelayBuilder[sim.VTimeInSec]().
			WithEngine(engine).
			WithFixedDuration(-1).
			Build("Delay")

		Expect(func() { delay.Receive(1) }).To(Panic())
	})
})

var _ = Describe("Generator", func() {
	var (
		engine *sim.SerialEngine[sim.VTimeInSec]
		sink   *Sink
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine[sim.VTimeInSec]()
		sink = NewSink("Sink")
	})

	It("should create entities at every interval", func() {
		var times []sim.VTimeInSec
		counter := &timedSink{Sink: sink, engine: engine, times: &times}

		gen := MakeGeneratorBuilder[sim.VTimeInSec]().
			WithEngine(engine).
			WithStartTime(func() sim.VTimeInSec { return 1 }).
			WithInterval(func() sim.VTimeInSec { return 2 }).
			WithMaxNumber(3).
			Build("Gen")
		gen.SetDestination(counter)

		gen.Start()
		Expect(engine.Run()).To(Succeed())

		Expect(gen.Generated()).To(Equal(3))
		Expect(sink.Count()).To(Equal(3))
		Expect(sink.Last()).To(Equal(Entity(3)))
		Expect(times).To(Equal([]sim.VTimeInSec{1, 3, 5}))
	})

	It("should stop a batch at the maximum number", func() {
		gen := MakeGeneratorBuilder[sim.VTimeInSec]().
			WithEngine(engine).
			WithInterval(func() sim.VTimeInSec { return 1 }).
			WithBatchSize(func() int { return 2 }).
			WithMaxNumber(3).
			Build("Gen")
		gen.SetDestination(sink)

		gen.Start()
		Expect(engine.Run()).To(Succeed())

		Expect(sink.Count()).To(Equal(3))
		Expect(engine.CurrentTime()).To(Equal(sim.VTimeInSec(1)))
	})

	It("should share entity handles through a source", func() {
		source := NewEntitySource()
		a := MakeGeneratorBuilder[sim.VTimeInSec]().
			WithEngine(engine).
			WithEntitySource(source).
			WithInterval(func() sim.VTimeInSec { return 1 }).
			WithMaxNumber(1).
			Build("A")
		b := MakeGeneratorBuilder[sim.VTimeInSec]().
			WithEngine(engine).
			WithEntitySource(source).
			WithInterval(func() sim.VTimeInSec { return 1 }).
			WithMaxNumber(1).
			Build("B")
		a.SetDestination(sink)
		b.SetDestination(sink)

		a.Start()
		b.Start()
		Expect(engine.Run()).To(Succeed())

		Expect(sink.Count()).To(Equal(2))
		Expect(sink.Last()).To(Equal(Entity(2)))
	})

	It("should stop when the engine runs until a time", func() {
		gen := MakeGeneratorBuilder[sim.VTimeInSec]().
			WithEngine(engine).
			WithInterval(func() sim.VTimeInSec { return 1 }).
			Build("Gen")
		gen.SetDestination(sink)

		gen.Start()
		Expect(engine.RunUntil(4.5)).To(Succeed())

		Expect(sink.Count()).To(Equal(5))
		Expect(engine.PendingEvents()).To(Equal(1))
	})

	It("should panic when started twice", func() {
		gen := MakeGeneratorBuilder[sim.VTimeInSec]().
			WithEngine(engine).
			WithInterval(func() sim.VTimeInSec { return 1 }).
			Build("Gen")

		gen.Start()
		Expect(gen.Start).To(Panic())
	})
})

type timedSink struct {
	*Sink
	engine *sim.SerialEngine[sim.VTimeInSec]
	times  *[]sim.VTimeInSec
}

func (s *timedSink) Receive(entity Entity) {
	*s.times = append(*s.times, s.engine.CurrentTime())
	s.Sink.Receive(entity)
}

var _ = Describe("Flow", func() {
	It("should connect stations in order", func() {
		a := NewSink("A")
		b := NewSink("B")
		c := NewSink("C")

		first := Connect(a, b, c)

		Expect(first).To(BeIdenticalTo(a))
		Expect(a.Destination()).To(BeIdenticalTo(b))
		Expect(b.Destination()).To(BeIdenticalTo(c))
		Expect(c.Destination()).To(BeNil())
		Expect(Connect()).To(BeNil())
	})

	It("should accept hooks through the station interface", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		hook := NewMockHook(mockCtrl)

		var station Station = NewSink("A")
		station.AcceptHook(hook)

		Expect(station.NumHooks()).To(Equal(1))
		Expect(station.Hooks()).To(ConsistOf(hook))
	})

	It("should run a single server queue", func() {
		engine := sim.NewSerialEngine[sim.VTimeInSec]()
		server := resource.MakeBuilder[sim.VTimeInSec]().
			WithTimeTeller(engine).
			WithCapacity(1).
			Build("Server")

		gen := MakeGeneratorBuilder[sim.VTimeInSec]().
			WithEngine(engine).
			WithInterval(func() sim.VTimeInSec { return 1 }).
			WithMaxNumber(3).
			Build("Arrivals")
		seize := MakeSeizeBuilder[sim.VTimeInSec]().
			WithTimeTeller(engine).
			WithResource(server).
			Build("Seize")
		delay := MakeDelayBuilder[sim.VTimeInSec]().
			WithEngine(engine).
			WithFixedDuration(5).
			Build("Service")
		release := NewRelease("Release", server, 1)
		sink := NewSink("Exit")

		Connect(gen, seize, delay, release, sink)

		rec := &hookRecorder{}
		seize.AcceptHook(rec)

		gen.Start()
		Expect(engine.Run()).To(Succeed())

		Expect(sink.Count()).To(Equal(3))
		Expect(engine.CurrentTime()).To(Equal(sim.VTimeInSec(15)))
		Expect(server.Claimed()).To(Equal(0.0))
		Expect(rec.values(DelayTime)).To(Equal([]float64{0, 4, 8}))
	})
})
