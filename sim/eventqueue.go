package sim

import (
	"container/heap"
	"sync"
)

// eventQueue is a thread safe queue of events ordered by time. Events that
// happen at the same time are ordered by their scheduling sequence number.
type eventQueue[T Time[T]] struct {
	sync.Mutex
	events eventHeap[T]
}

func newEventQueue[T Time[T]]() *eventQueue[T] {
	q := &eventQueue[T]{}
	q.events = make([]*ScheduledEvent[T], 0)
	heap.Init(&q.events)

	return q
}

func (q *eventQueue[T]) Push(evt *ScheduledEvent[T]) {
	q.Lock()
	heap.Push(&q.events, evt)
	q.Unlock()
}

func (q *eventQueue[T]) Pop() *ScheduledEvent[T] {
	q.Lock()
	defer q.Unlock()

	if q.events.Len() == 0 {
		return nil
	}

	return heap.Pop(&q.events).(*ScheduledEvent[T])
}

func (q *eventQueue[T]) Len() int {
	q.Lock()
	defer q.Unlock()

	return q.events.Len()
}

func (q *eventQueue[T]) Peek() *ScheduledEvent[T] {
	q.Lock()
	defer q.Unlock()

	if q.events.Len() == 0 {
		return nil
	}

	return q.events[0]
}

type eventHeap[T Time[T]] []*ScheduledEvent[T]

func (h eventHeap[T]) Len() int { return len(h) }

func (h eventHeap[T]) Less(i, j int) bool {
	c := h[i].Time.Compare(h[j].Time)
	if c != 0 {
		return c < 0
	}

	return h[i].seq < h[j].seq
}

func (h eventHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *eventHeap[T]) Push(x any) {
	evt := x.(*ScheduledEvent[T])
	*h = append(*h, evt)
}

func (h *eventHeap[T]) Pop() any {
	old := *h
	n := len(old)
	evt := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]

	return evt
}
