package sim

// Handler processes events of various types.
// Events are plain data (no interface required). Handlers use type switching
// to handle different event types:
//
//	func (h *MyHandler) Handle(event any) error {
//	    switch e := event.(type) {
//	    case *MyEvent:
//	        // handle MyEvent
//	    default:
//	        return fmt.Errorf("unknown event type: %T", event)
//	    }
//	    return nil
//	}
type Handler interface {
	Handle(event any) error
}

// ScheduledEvent is the engine-facing wrapper for user-defined events.
// It holds the metadata needed by the scheduler while keeping the payload as
// plain data. Users typically pass pointers so large structs are not copied.
type ScheduledEvent[T Time[T]] struct {
	// Event is the data payload to be delivered to the handler.
	Event any

	// Time is when the event should be processed.
	Time T

	// Handler is the component that will process this event.
	Handler Handler

	// IsSecondary indicates if this event should be processed after all
	// primary events at the same time.
	IsSecondary bool

	// seq is assigned by the engine and breaks ties between events that
	// happen at the same time.
	seq uint64
}

// Seq returns the scheduling sequence number assigned by the engine.
func (e *ScheduledEvent[T]) Seq() uint64 {
	return e.seq
}
