package sim

import "errors"

// ErrEngineTerminated is returned by Run and RunUntil after Terminate is
// called.
var ErrEngineTerminated = errors.New("engine terminated")

// TimeTeller can be used to get the current time.
type TimeTeller[T Time[T]] interface {
	CurrentTime() T
}

// EventScheduler can be used to schedule future events.
type EventScheduler[T Time[T]] interface {
	TimeTeller[T]

	Schedule(evt ScheduledEvent[T])
}

// An Engine is a unit that keeps the discrete event simulation run.
type Engine[T Time[T]] interface {
	Hookable
	EventScheduler[T]

	// Run will process all the events until the simulation finishes.
	Run() error

	// RunUntil processes all the events that happen no later than end.
	RunUntil(end T) error

	// Pause will pause the simulation until continue is called.
	Pause()

	// Continue will continue the paused simulation.
	Continue()

	// Terminate stops the engine after the event being processed.
	Terminate()
}
