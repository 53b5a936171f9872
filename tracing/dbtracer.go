package tracing

import (
	"github.com/sarchlab/flowsim/datarecording"
	"github.com/sarchlab/flowsim/flow"
	"github.com/sarchlab/flowsim/resource"
	"github.com/sarchlab/flowsim/sim"
)

// Names of the tables a DBTracer writes to.
const (
	NotificationTable = "notifications"
	ChangeTable       = "resource_changes"
	FailureTable      = "failures"
)

// NotificationEntry is a row of the notification table.
type NotificationEntry struct {
	Replication string  `structs:"replication"`
	Station     string  `structs:"station"`
	Kind        string  `structs:"kind"`
	Value       float64 `structs:"value"`
	Time        float64 `structs:"time"`
	Seq         int64   `structs:"seq"`
}

// ChangeEntry is a row of the resource change table.
type ChangeEntry struct {
	Replication string  `structs:"replication"`
	Resource    string  `structs:"resource"`
	Time        float64 `structs:"time"`
	Seq         int64   `structs:"seq"`
	Capacity    float64 `structs:"capacity"`
	Claimed     float64 `structs:"claimed"`
	QueueLength int     `structs:"queue_length"`
}

// FailureEntry is a row of the failure table.
type FailureEntry struct {
	Replication string  `structs:"replication"`
	Station     string  `structs:"station"`
	Entity      int64   `structs:"entity"`
	Time        float64 `structs:"time"`
	Error       string  `structs:"error"`
}

// CreateTables creates the tables DBTracers write to. Call it once per
// recorder, before any replication runs.
func CreateTables(recorder datarecording.DataRecorder) {
	recorder.CreateTable(NotificationTable, NotificationEntry{})
	recorder.CreateTable(ChangeTable, ChangeEntry{})
	recorder.CreateTable(FailureTable, FailureEntry{})
}

// DBTracer writes the trace of one replication into a data recorder.
// Replications that run side by side can share the recorder.
type DBTracer[T sim.Time[T]] struct {
	recorder    datarecording.DataRecorder
	replication string
}

// NewDBTracer creates a DBTracer that labels its rows with replication.
func NewDBTracer[T sim.Time[T]](
	recorder datarecording.DataRecorder,
	replication string,
) *DBTracer[T] {
	return &DBTracer[T]{
		recorder:    recorder,
		replication: replication,
	}
}

// Notify records a station notification.
func (t *DBTracer[T]) Notify(n flow.Notification[T]) {
	t.recorder.InsertData(NotificationTable, NotificationEntry{
		Replication: t.replication,
		Station:     n.Station,
		Kind:        n.Kind.String(),
		Value:       n.Value,
		Time:        n.Time.Float64(),
		Seq:         int64(n.Seq),
	})
}

// Change records a resource change.
func (t *DBTracer[T]) Change(resourceName string, c resource.Change[T]) {
	t.recorder.InsertData(ChangeTable, ChangeEntry{
		Replication: t.replication,
		Resource:    resourceName,
		Time:        c.Time.Float64(),
		Seq:         int64(c.Seq),
		Capacity:    c.Capacity,
		Claimed:     c.Claimed,
		QueueLength: c.QueueLength,
	})
}

// Fail records a contained failure.
func (t *DBTracer[T]) Fail(f flow.Failure[T]) {
	t.recorder.InsertData(FailureTable, FailureEntry{
		Replication: t.replication,
		Station:     f.Station,
		Entity:      int64(f.Entity),
		Time:        f.Time.Float64(),
		Error:       f.Err.Error(),
	})
}

var _ Tracer[sim.VTimeInSec] = (*DBTracer[sim.VTimeInSec])(nil)
