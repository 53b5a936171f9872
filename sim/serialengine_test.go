package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

type labelEvent struct {
	label string
}

type recordingHandler struct {
	engine   *SerialEngine[VTimeInSec]
	calls    []string
	times    []VTimeInSec
	schedule map[string][]ScheduledEvent[VTimeInSec]
}

func (h *recordingHandler) Handle(event any) error {
	evt := event.(*labelEvent)
	h.calls = append(h.calls, evt.label)
	h.times = append(h.times, h.engine.CurrentTime())

	for _, next := range h.schedule[evt.label] {
		h.engine.Schedule(next)
	}

	return nil
}

var _ = Describe("SerialEngine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *SerialEngine[VTimeInSec]
		handler  *recordingHandler
	)

	at := func(label string, t VTimeInSec) ScheduledEvent[VTimeInSec] {
		return ScheduledEvent[VTimeInSec]{
			Event:   &labelEvent{label: label},
			Time:    t,
			Handler: handler,
		}
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewSerialEngine[VTimeInSec]()
		handler = &recordingHandler{engine: engine}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should run events in time order", func() {
		handler.schedule = map[string][]ScheduledEvent[VTimeInSec]{
			"evt2": {at("evt3", 3), at("evt4", 5)},
		}

		engine.Schedule(at("evt1", 4))
		engine.Schedule(at("evt2", 2))

		Expect(engine.Run()).To(Succeed())
		Expect(handler.calls).To(Equal([]string{"evt2", "evt3", "evt1", "evt4"}))
		Expect(handler.times).To(Equal([]VTimeInSec{2, 3, 4, 5}))
	})

	It("should break ties by scheduling order", func() {
		for _, l := range []string{"a", "b", "c", "d", "e"} {
			engine.Schedule(at(l, 1))
		}

		Expect(engine.Run()).To(Succeed())
		Expect(handler.calls).To(Equal([]string{"a", "b", "c", "d", "e"}))
	})

	It("should run secondary events after primary events at the same time", func() {
		secondary := at("secondary", 2)
		secondary.IsSecondary = true

		engine.Schedule(secondary)
		engine.Schedule(at("primary", 2))
		engine.Schedule(at("early", 1))

		Expect(engine.Run()).To(Succeed())
		Expect(handler.calls).To(Equal([]string{"early", "primary", "secondary"}))
	})

	It("should panic when scheduling in the past", func() {
		engine.Schedule(at("evt", 5))
		Expect(engine.Run()).To(Succeed())

		Expect(func() { engine.Schedule(at("late", 4)) }).To(Panic())
	})

	It("should stop at the end time and keep later events", func() {
		engine.Schedule(at("evt1", 1))
		engine.Schedule(at("evt2", 10))

		Expect(engine.RunUntil(5)).To(Succeed())

		Expect(handler.calls).To(Equal([]string{"evt1"}))
		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(5)))
		Expect(engine.PendingEvents()).To(Equal(1))
	})

	It("should include events exactly at the end time", func() {
		engine.Schedule(at("edge", 5))

		Expect(engine.RunUntil(5)).To(Succeed())

		Expect(handler.calls).To(Equal([]string{"edge"}))
	})

	It("should start the clock at the given time", func() {
		engine = NewSerialEngineAt[VTimeInSec](100)

		Expect(engine.CurrentTime()).To(Equal(VTimeInSec(100)))
		Expect(func() { engine.Schedule(at("early", 50)) }).To(Panic())
	})

	It("should stop when terminated", func() {
		handler.schedule = map[string][]ScheduledEvent[VTimeInSec]{
			"evt1": {at("evt2", 2)},
		}
		engine.Schedule(at("evt1", 1))
		engine.Terminate()

		err := engine.Run()

		Expect(errors.Is(err, ErrEngineTerminated)).To(BeTrue())
		Expect(handler.calls).To(BeEmpty())
	})

	It("should keep running when a handler fails", func() {
		failing := NewMockHandler(mockCtrl)
		failing.EXPECT().Handle(gomock.Any()).Return(errors.New("boom"))

		engine.Schedule(ScheduledEvent[VTimeInSec]{
			Event:   &labelEvent{label: "fail"},
			Time:    1,
			Handler: failing,
		})
		engine.Schedule(at("after", 2))

		Expect(engine.Run()).To(Succeed())
		Expect(handler.calls).To(Equal([]string{"after"}))
	})

	It("should invoke hooks around every event", func() {
		hook := NewMockHook(mockCtrl)
		engine.AcceptHook(hook)

		gomock.InOrder(
			hook.EXPECT().Func(gomock.Cond(func(x any) bool {
				return x.(HookCtx).Pos == HookPosBeforeEvent
			})),
			hook.EXPECT().Func(gomock.Cond(func(x any) bool {
				return x.(HookCtx).Pos == HookPosAfterEvent
			})),
		)

		engine.Schedule(at("evt", 1))

		Expect(engine.Run()).To(Succeed())
	})

	It("should reject duplicated hooks", func() {
		hook := NewMockHook(mockCtrl)
		engine.AcceptHook(hook)

		Expect(func() { engine.AcceptHook(hook) }).To(Panic())
		Expect(engine.NumHooks()).To(Equal(1))
	})

	It("should work with integer ticks", func() {
		tickEngine := NewSerialEngine[VTimeInTick]()
		tickHandler := NewMockHandler(mockCtrl)

		tickHandler.EXPECT().Handle("tick").Return(nil).Times(2)

		tickEngine.Schedule(ScheduledEvent[VTimeInTick]{
			Event: "tick", Time: 7, Handler: tickHandler})
		tickEngine.Schedule(ScheduledEvent[VTimeInTick]{
			Event: "tick", Time: 3, Handler: tickHandler})

		Expect(tickEngine.RunUntil(10)).To(Succeed())
		Expect(tickEngine.CurrentTime()).To(Equal(VTimeInTick(10)))
	})
})
