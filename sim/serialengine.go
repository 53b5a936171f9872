package sim

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// HookPosBeforeEvent is a hook position that triggers before handling an event.
var HookPosBeforeEvent = &HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event.
var HookPosAfterEvent = &HookPos{Name: "AfterEvent"}

// A SerialEngine is an Engine that always run events one after another.
type SerialEngine[T Time[T]] struct {
	*HookableBase

	timeLock sync.RWMutex
	now      T

	nextSeq        atomic.Uint64
	queue          *eventQueue[T]
	secondaryQueue *eventQueue[T]

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
	terminated    atomic.Bool
}

// NewSerialEngine creates a SerialEngine whose clock starts at the zero time.
func NewSerialEngine[T Time[T]]() *SerialEngine[T] {
	return &SerialEngine[T]{
		HookableBase:   NewHookableBase(),
		queue:          newEventQueue[T](),
		secondaryQueue: newEventQueue[T](),
	}
}

// NewSerialEngineAt creates a SerialEngine whose clock starts at start.
func NewSerialEngineAt[T Time[T]](start T) *SerialEngine[T] {
	e := NewSerialEngine[T]()
	e.now = start

	return e
}

// Schedule registers an event to be happen in the future.
func (e *SerialEngine[T]) Schedule(evt ScheduledEvent[T]) {
	now := e.readNow()
	if evt.Time.Compare(now) < 0 {
		panic(fmt.Sprintf(
			"cannot schedule event in the past, evt %s @ %v, now %v",
			reflect.TypeOf(evt.Event), evt.Time, now,
		))
	}

	eventCopy := evt
	eventCopy.seq = e.nextSeq.Add(1)

	if evt.IsSecondary {
		e.secondaryQueue.Push(&eventCopy)
		return
	}

	e.queue.Push(&eventCopy)
}

func (e *SerialEngine[T]) readNow() T {
	e.timeLock.RLock()
	t := e.now
	e.timeLock.RUnlock()

	return t
}

func (e *SerialEngine[T]) writeNow(t T) {
	e.timeLock.Lock()
	e.now = t
	e.timeLock.Unlock()
}

// Run processes all the events scheduled in the SerialEngine.
func (e *SerialEngine[T]) Run() error {
	return e.run(nil)
}

// RunUntil processes the events that happen no later than end. Events after
// end stay in the queue. When RunUntil returns without error, the clock reads
// end.
func (e *SerialEngine[T]) RunUntil(end T) error {
	if end.Compare(e.readNow()) < 0 {
		panic(fmt.Sprintf("cannot run until %v, now %v", end, e.readNow()))
	}

	return e.run(&end)
}

func (e *SerialEngine[T]) run(end *T) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for {
		if e.terminated.Load() {
			return ErrEngineTerminated
		}

		next := e.peekNext()
		if next == nil || (end != nil && next.Time.Compare(*end) > 0) {
			if end != nil {
				e.writeNow(*end)
			}

			return nil
		}

		e.pauseLock.Lock()
		e.processNextEvent()
		e.pauseLock.Unlock()
	}
}

func (e *SerialEngine[T]) processNextEvent() {
	evt := e.nextEvent()
	now := e.readNow()

	if evt.Time.Compare(now) < 0 {
		panic(fmt.Sprintf(
			"cannot run event in the past, evt %s @ %v, now %v",
			reflect.TypeOf(evt.Event), evt.Time, now,
		))
	}

	e.writeNow(evt.Time)

	hookCtx := HookCtx{
		Domain: e,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	e.InvokeHook(hookCtx)

	if evt.Handler != nil {
		err := evt.Handler.Handle(evt.Event)
		if err != nil {
			logrus.Warnf("event %s @ %v failed: %v",
				reflect.TypeOf(evt.Event), evt.Time, err)
		}
	}

	hookCtx.Pos = HookPosAfterEvent
	e.InvokeHook(hookCtx)
}

func (e *SerialEngine[T]) peekNext() *ScheduledEvent[T] {
	primary := e.queue.Peek()
	secondary := e.secondaryQueue.Peek()

	switch {
	case primary == nil:
		return secondary
	case secondary == nil:
		return primary
	case primary.Time.Compare(secondary.Time) <= 0:
		return primary
	default:
		return secondary
	}
}

func (e *SerialEngine[T]) nextEvent() *ScheduledEvent[T] {
	if e.queue.Len() == 0 {
		return e.secondaryQueue.Pop()
	}

	if e.secondaryQueue.Len() == 0 {
		return e.queue.Pop()
	}

	primary := e.queue.Peek()
	secondary := e.secondaryQueue.Peek()

	if primary.Time.Compare(secondary.Time) <= 0 {
		return e.queue.Pop()
	}

	return e.secondaryQueue.Pop()
}

// Pause prevents the SerialEngine to trigger more events.
func (e *SerialEngine[T]) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue allows the SerialEngine to trigger more events.
func (e *SerialEngine[T]) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// Terminate makes Run and RunUntil return ErrEngineTerminated once the event
// being processed completes. It is safe to call from any goroutine.
func (e *SerialEngine[T]) Terminate() {
	e.terminated.Store(true)
}

// CurrentTime returns the current time at which the engine is at.
// Specifically, the run time of the current event.
func (e *SerialEngine[T]) CurrentTime() T {
	return e.readNow()
}

// PendingEvents returns the number of events waiting in the queues.
func (e *SerialEngine[T]) PendingEvents() int {
	return e.queue.Len() + e.secondaryQueue.Len()
}

var _ Engine[VTimeInSec] = (*SerialEngine[VTimeInSec])(nil)
