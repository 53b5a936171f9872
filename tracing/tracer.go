// Package tracing records what happens in a flow model, one row per
// notification.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/flowsim/flow"
	"github.com/sarchlab/flowsim/resource"
	"github.com/sarchlab/flowsim/sim"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	Name() string
	sim.Hookable
}

// A Tracer observes the notifications of stations and resources.
type Tracer[T sim.Time[T]] interface {
	// Notify is called for every measurement a station reports.
	Notify(n flow.Notification[T])

	// Change is called whenever the state of a resource changes.
	Change(resourceName string, c resource.Change[T])

	// Fail is called for every failure a station contained.
	Fail(f flow.Failure[T])
}

// CollectTrace lets the tracer collect the trace of a domain.
func CollectTrace[T sim.Time[T]](domain NamedHookable, tracer Tracer[T]) {
	for _, hook := range domain.Hooks() {
		h, ok := hook.(*traceHook[T])
		if ok && h.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	h := traceHook[T]{t: tracer}
	domain.AcceptHook(&h)
}

// A traceHook forwards hook invocations to a tracer.
type traceHook[T sim.Time[T]] struct {
	t Tracer[T]
}

// Func calls the tracer when the hook is triggered.
func (h *traceHook[T]) Func(ctx sim.HookCtx) {
	switch item := ctx.Item.(type) {
	case flow.Notification[T]:
		h.t.Notify(item)
	case flow.Failure[T]:
		h.t.Fail(item)
	case resource.Change[T]:
		name := ""
		if d, ok := ctx.Domain.(NamedHookable); ok {
			name = d.Name()
		}

		h.t.Change(name, item)
	}
}
