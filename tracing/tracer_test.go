package tracing

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/flowsim/datarecording"
	"github.com/sarchlab/flowsim/flow"
	"github.com/sarchlab/flowsim/resource"
	"github.com/sarchlab/flowsim/sim"
	"go.uber.org/mock/gomock"
)

var _ = Describe("CollectTrace", func() {
	var (
		mockCtrl *gomock.Controller
		tracer   *MockTracer[sim.VTimeInSec]
		engine   *sim.SerialEngine[sim.VTimeInSec]
		server   *resource.Resource[sim.VTimeInSec]
		seize    *flow.Seize[sim.VTimeInSec]
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tracer = NewMockTracer[sim.VTimeInSec](mockCtrl)
		engine = sim.NewSerialEngine[sim.VTimeInSec]()
		server = resource.MakeBuilder[sim.VTimeInSec]().
			WithTimeTeller(engine).
			Build("Server")
		seize = flow.MakeSeizeBuilder[sim.VTimeInSec]().
			WithTimeTeller(engine).
			WithResource(server).
			Build("Seize")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should forward notifications and changes", func() {
		CollectTrace[sim.VTimeInSec](seize, tracer)
		CollectTrace[sim.VTimeInSec](server, tracer)

		var kinds []flow.NotificationKind
		tracer.EXPECT().Notify(gomock.Any()).
			Do(func(n flow.Notification[sim.VTimeInSec]) {
				kinds = append(kinds, n.Kind)
			}).
			Times(3)
		tracer.EXPECT().Change("Server", gomock.Any()).
			Do(func(_ string, c resource.Change[sim.VTimeInSec]) {
				Expect(c.Claimed).To(Equal(1.0))
			})

		seize.Receive(1)

		Expect(kinds).To(Equal([]flow.NotificationKind{
			flow.QueueLength, flow.QueueLength, flow.DelayTime,
		}))
	})

	It("should forward failures", func() {
		CollectTrace[sim.VTimeInSec](seize, tracer)

		tracer.EXPECT().Notify(gomock.Any()).AnyTimes()
		tracer.EXPECT().Fail(gomock.Any()).
			Do(func(f flow.Failure[sim.VTimeInSec]) {
				Expect(f.Entity).To(Equal(flow.Entity(1)))
				Expect(f.Err).To(MatchError(flow.ErrCallbackFailure))
			})

		seize.SetDestination(&panickingStation{StationBase: flow.NewStationBase("Bad")})
		seize.Receive(1)
	})

	It("should not attach the same tracer twice", func() {
		CollectTrace[sim.VTimeInSec](seize, tracer)

		Expect(func() { CollectTrace[sim.VTimeInSec](seize, tracer) }).
			To(Panic())
	})
})

type panickingStation struct {
	*flow.StationBase
}

func (s *panickingStation) Receive(flow.Entity) {
	panic(errors.New("cannot take entities"))
}

var _ = Describe("DBTracer", func() {
	It("should record a run into tables", func() {
		db, err := sql.Open("sqlite",
			filepath.Join(GinkgoT().TempDir(), "trace.sqlite3"))
		Expect(err).NotTo(HaveOccurred())

		recorder := datarecording.NewWithDB(db)
		defer recorder.Close()

		CreateTables(recorder)
		Expect(recorder.ListTables()).To(Equal([]string{
			NotificationTable, ChangeTable, FailureTable,
		}))

		engine := sim.NewSerialEngine[sim.VTimeInSec]()
		server := resource.MakeBuilder[sim.VTimeInSec]().
			WithTimeTeller(engine).
			Build("Server")
		seize := flow.MakeSeizeBuilder[sim.VTimeInSec]().
			WithTimeTeller(engine).
			WithResource(server).
			Build("Seize")
		seize.SetDestination(&panickingStation{
			StationBase: flow.NewStationBase("Bad"),
		})

		tracer := NewDBTracer[sim.VTimeInSec](recorder, "rep-0")
		CollectTrace[sim.VTimeInSec](seize, tracer)
		CollectTrace[sim.VTimeInSec](server, tracer)

		seize.Receive(5)
		recorder.Flush()

		reader := datarecording.NewReaderWithDB(db)
		reader.MapTable(NotificationTable, NotificationEntry{})
		reader.MapTable(ChangeTable, ChangeEntry{})
		reader.MapTable(FailureTable, FailureEntry{})

		rows, total, err := reader.Query(context.Background(),
			NotificationTable, datarecording.QueryParams{OrderBy: "seq"})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(3))
		Expect(rows[2]).To(Equal(&NotificationEntry{
			Replication: "rep-0",
			Station:     "Seize",
			Kind:        "DelayTime",
			Value:       0,
			Time:        0,
			Seq:         3,
		}))

		_, total, err = reader.Query(context.Background(),
			ChangeTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(1))

		rows, _, err = reader.Query(context.Background(),
			FailureTable, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))

		failure := rows[0].(*FailureEntry)
		Expect(failure.Entity).To(Equal(int64(5)))
		Expect(failure.Error).To(ContainSubstring("cannot take entities"))
	})
})
