package flow

import (
	"errors"

	"github.com/sarchlab/flowsim/sim"
)

// ErrCallbackFailure wraps failures that a Seize contained so that the
// simulation could continue.
var ErrCallbackFailure = errors.New("callback failure")

// HookPosQueueLength marks a change of the length of a Seize queue.
var HookPosQueueLength = &sim.HookPos{Name: "Seize Queue Length"}

// HookPosDelayTime marks a granted request and carries its waiting time.
var HookPosDelayTime = &sim.HookPos{Name: "Seize Delay Time"}

// HookPosCallbackFailure marks a failure contained by a station.
var HookPosCallbackFailure = &sim.HookPos{Name: "Callback Failure"}

// HookPosInService marks a change of the number of entities held by a Delay.
var HookPosInService = &sim.HookPos{Name: "Delay In Service"}

// NotificationKind tells what a Notification measures.
type NotificationKind int

// Kinds of notifications.
const (
	QueueLength NotificationKind = iota
	DelayTime
	InService
)

func (k NotificationKind) String() string {
	switch k {
	case QueueLength:
		return "QueueLength"
	case DelayTime:
		return "DelayTime"
	case InService:
		return "InService"
	default:
		return "Unknown"
	}
}

// Notification is the Item of the measurement hooks a station invokes.
//
// Notifications of one station are emitted in the order of the underlying
// state transitions. Seq increases with every notification of the station
// and orders notifications that share a Time.
type Notification[T sim.Time[T]] struct {
	Kind    NotificationKind
	Station string
	Value   float64
	Time    T
	Seq     uint64
}

// Failure is the Item of HookPosCallbackFailure.
type Failure[T sim.Time[T]] struct {
	Station string
	Entity  Entity
	Time    T
	Err     error
}

// notifier numbers and emits the notifications of one station.
type notifier[T sim.Time[T]] struct {
	seq uint64
}

func (n *notifier[T]) emit(
	domain sim.Hookable,
	base *StationBase,
	pos *sim.HookPos,
	kind NotificationKind,
	value float64,
	now T,
) {
	n.seq++

	if base.NumHooks() == 0 {
		return
	}

	base.InvokeHook(sim.HookCtx{
		Domain: domain,
		Pos:    pos,
		Item: Notification[T]{
			Kind:    kind,
			Station: base.Name(),
			Value:   value,
			Time:    now,
			Seq:     n.seq,
		},
	})
}
