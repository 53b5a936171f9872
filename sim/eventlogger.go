package sim

import (
	"reflect"

	"github.com/sirupsen/logrus"
)

// EventLogger is an hook that logs every event before it is handled.
type EventLogger[T Time[T]] struct {
	logger logrus.FieldLogger
}

// NewEventLogger returns a new EventLogger which will write into the logger.
// Attach it to an engine.
func NewEventLogger[T Time[T]](logger logrus.FieldLogger) *EventLogger[T] {
	return &EventLogger[T]{logger: logger}
}

// Func writes the event information into the logger
func (h *EventLogger[T]) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(*ScheduledEvent[T])
	if !ok {
		return
	}

	entry := h.logger.WithFields(logrus.Fields{
		"time":  evt.Time,
		"seq":   evt.Seq(),
		"event": reflect.TypeOf(evt.Event).String(),
	})

	if named, ok := evt.Handler.(interface{ Name() string }); ok {
		entry = entry.WithField("handler", named.Name())
	}

	entry.Trace("event")
}
