package stats

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/flowsim/flow"
	"github.com/sarchlab/flowsim/resource"
	"github.com/sarchlab/flowsim/sim"
)

var _ = Describe("Tally", func() {
	It("should be empty at first", func() {
		t := NewTally()

		Expect(t.N()).To(Equal(0))
		Expect(math.IsNaN(t.Mean())).To(BeTrue())
		Expect(math.IsNaN(t.Variance())).To(BeTrue())
		Expect(math.IsNaN(t.Min())).To(BeTrue())
	})

	It("should summarize observations", func() {
		t := NewTally()
		for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
			t.Register(x)
		}

		Expect(t.N()).To(Equal(8))
		Expect(t.Sum()).To(Equal(40.0))
		Expect(t.Mean()).To(BeNumerically("~", 5, 1e-12))
		Expect(t.Variance()).To(BeNumerically("~", 32.0/7, 1e-12))
		Expect(t.Min()).To(Equal(2.0))
		Expect(t.Max()).To(Equal(9.0))
	})

	It("should start over after a reset", func() {
		t := NewTally()
		t.Register(100)
		t.Reset()
		t.Register(1)

		Expect(t.N()).To(Equal(1))
		Expect(t.Mean()).To(Equal(1.0))
		Expect(t.Max()).To(Equal(1.0))
	})
})

var _ = Describe("Persistent", func() {
	It("should weigh values by how long they were held", func() {
		p := NewPersistent[sim.VTimeInSec](0)
		p.Register(0, 2)
		p.Register(1, 4)
		p.Register(4, 0)

		Expect(p.Mean(5)).To(BeNumerically("~", (2*1+4*3+0*1)/5.0, 1e-12))
		Expect(p.Min()).To(Equal(0.0))
		Expect(p.Max()).To(Equal(4.0))
		Expect(p.Current()).To(Equal(0.0))
		Expect(p.N()).To(Equal(3))
	})

	It("should keep the current value across a reset", func() {
		p := NewPersistent[sim.VTimeInSec](0)
		p.Register(0, 10)
		p.Register(2, 3)
		p.Reset(4)

		Expect(p.Mean(4)).To(Equal(3.0))
		Expect(p.Mean(6)).To(BeNumerically("~", 3, 1e-12))
		Expect(p.Min()).To(Equal(3.0))
		Expect(p.Max()).To(Equal(3.0))
	})

	It("should reject changes out of time order", func() {
		p := NewPersistent[sim.VTimeInSec](0)
		p.Register(5, 1)

		Expect(func() { p.Register(4, 1) }).To(Panic())
	})

	It("should work with unit times", func() {
		p := NewPersistent(sim.Minutes(0))
		p.Register(sim.Minutes(0), 1)
		p.Register(sim.Minutes(1), 0)

		Expect(p.Mean(sim.Minutes(2))).To(BeNumerically("~", 0.5, 1e-12))
	})
})

var _ = Describe("Collectors", func() {
	var (
		engine *sim.SerialEngine[sim.VTimeInSec]
		server *resource.Resource[sim.VTimeInSec]
		seize  *flow.Seize[sim.VTimeInSec]
		sink   *flow.Sink
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine[sim.VTimeInSec]()
		server = resource.MakeBuilder[sim.VTimeInSec]().
			WithTimeTeller(engine).
			WithCapacity(1).
			Build("Server")
		seize = flow.MakeSeizeBuilder[sim.VTimeInSec]().
			WithTimeTeller(engine).
			WithResource(server).
			Build("Seize")
		sink = flow.NewSink("Sink")
		seize.SetDestination(sink)
	})

	It("should collect the statistics of a queue", func() {
		delay := NewTallyCollector[sim.VTimeInSec]("delay", flow.HookPosDelayTime)
		queue := NewPersistentCollector[sim.VTimeInSec](
			"queue", flow.HookPosQueueLength, 0)
		util := NewUtilization[sim.VTimeInSec]("util", 0)

		seize.AcceptHook(delay)
		seize.AcceptHook(queue)
		server.AcceptHook(util)

		seize.Receive(1)
		seize.Receive(2)

		Expect(engine.RunUntil(4)).To(Succeed())
		Expect(server.ReleaseCapacity(1)).To(Succeed())

		Expect(engine.RunUntil(8)).To(Succeed())
		Expect(server.ReleaseCapacity(1)).To(Succeed())

		Expect(engine.RunUntil(10)).To(Succeed())

		Expect(sink.Count()).To(Equal(2))

		Expect(delay.N()).To(Equal(2))
		Expect(delay.Mean()).To(BeNumerically("~", 2, 1e-12))

		Expect(queue.Mean(10)).To(BeNumerically("~", 0.4, 1e-12))
		Expect(queue.Max()).To(Equal(1.0))

		Expect(util.Mean(10)).To(BeNumerically("~", 0.8, 1e-12))

		s := util.Summarize(10)
		Expect(s.Name).To(Equal("util"))
		Expect(s.Kind).To(Equal("utilization"))
	})

	It("should ignore other hook positions", func() {
		delay := NewTallyCollector[sim.VTimeInSec]("delay", flow.HookPosDelayTime)

		delay.Func(sim.HookCtx{
			Pos: flow.HookPosQueueLength,
			Item: flow.Notification[sim.VTimeInSec]{
				Kind:  flow.QueueLength,
				Value: 3,
			},
		})

		Expect(delay.N()).To(Equal(0))
	})
})

var _ = Describe("Registry", func() {
	It("should reset and summarize all statistics", func() {
		r := NewRegistry[sim.VTimeInSec]()
		a := NewTallyCollector[sim.VTimeInSec]("b-tally", flow.HookPosDelayTime)
		b := NewUtilization[sim.VTimeInSec]("a-util", 0)
		r.Add(a)
		r.Add(b)

		a.Register(3)
		b.Register(0, 1)
		b.Register(2, 0)

		Expect(r.Len()).To(Equal(2))

		r.Reset(5)

		summaries := r.Summarize(10)
		Expect(summaries).To(HaveLen(2))
		Expect(summaries[0].Name).To(Equal("a-util"))
		Expect(summaries[0].Mean).To(Equal(0.0))
		Expect(summaries[1].Name).To(Equal("b-tally"))
		Expect(summaries[1].N).To(Equal(0))

		got, found := r.Get("a-util")
		Expect(found).To(BeTrue())
		Expect(got).To(BeIdenticalTo(b))
	})

	It("should panic on duplicated names", func() {
		r := NewRegistry[sim.VTimeInSec]()
		r.Add(NewUtilization[sim.VTimeInSec]("u", 0))

		Expect(func() { r.Add(NewUtilization[sim.VTimeInSec]("u", 0)) }).
			To(Panic())
	})
})
