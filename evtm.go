package phydes

// evtm.go holds the discrete-event engine: the event queue ordered by
// (virtual time, insertion sequence) and the EventManager that owns it,
// advances the simulation clock, and dispatches handlers.  The clock
// moves only when an event is popped; nothing else advances time.

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/iti/evt/vrtime"
	log "github.com/sirupsen/logrus"
)

// EventHandlerFunction is the signature of every scheduled callback.
// The first argument is the dispatching event manager, the second and
// third are the context and data the scheduler call supplied.
type EventHandlerFunction func(evtMgr *EventManager, context any, data any) any

// simEvent is one scheduled handler invocation.  The (time, seq) pair
// is its total-order key: seq increases with every insertion, so events
// scheduled for the same tick run first-in first-out.
type simEvent struct {
	time    vrtime.Time
	seq     int64
	context any
	data    any
	handler EventHandlerFunction

	// lazy cancellation: a cancelled event stays in the heap and is
	// skipped when popped
	cancelled bool
	executed  bool
}

// EventHandle identifies a scheduled event for later cancellation
type EventHandle struct {
	evt *simEvent
}

// eventHeap implements a min-heap on (time, seq), following the
// container/heap protocol
type eventHeap []*simEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].time.Ticks() != h[j].time.Ticks() {
		return h[i].time.Ticks() < h[j].time.Ticks()
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*simEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// eventQueue owns all pending events.  It tracks the watermark of
// already-consumed time so that insertion into the past is caught at
// the queue boundary, and the count of lazily cancelled entries so the
// heap can be compacted before cancellation-heavy workloads bloat it.
type eventQueue struct {
	events    eventHeap
	nxtSeq    int64
	watermark vrtime.Time
	cancelled int
}

// compactionFloor is the heap size below which compaction is not worth
// the rebuild
const compactionFloor = 64

func createEventQueue() *eventQueue {
	eq := new(eventQueue)
	eq.events = eventHeap{}
	heap.Init(&eq.events)
	eq.watermark = vrtime.SecondsToTime(0.0)
	return eq
}

// insert places an event in the queue and returns a handle for it.
// Scheduling before the consumed watermark violates causality and is a
// programming error.
func (eq *eventQueue) insert(t vrtime.Time, context any, data any, handler EventHandlerFunction) *EventHandle {
	if t.Ticks() < eq.watermark.Ticks() {
		panic(fmt.Sprintf("event scheduled at %f, before current time %f",
			t.Seconds(), eq.watermark.Seconds()))
	}
	evt := &simEvent{time: t, seq: eq.nxtSeq, context: context, data: data, handler: handler}
	eq.nxtSeq += 1
	heap.Push(&eq.events, evt)
	return &EventHandle{evt: evt}
}

// peekEarliest returns the earliest live event without removing it, or
// nil when the queue holds none
func (eq *eventQueue) peekEarliest() *simEvent {
	for len(eq.events) > 0 {
		if eq.events[0].cancelled {
			heap.Pop(&eq.events)
			eq.cancelled -= 1
			continue
		}
		return eq.events[0]
	}
	return nil
}

// popEarliest removes and returns the earliest live event.  Popping an
// empty queue is a precondition violation.
func (eq *eventQueue) popEarliest() *simEvent {
	if eq.peekEarliest() == nil {
		panic("popEarliest called on empty event queue")
	}
	evt := heap.Pop(&eq.events).(*simEvent)
	eq.watermark = evt.time
	return evt
}

// cancel marks the event inert.  Cancelling an executed or already
// cancelled event is a no-op.
func (eq *eventQueue) cancel(h *EventHandle) {
	if h == nil || h.evt == nil || h.evt.executed || h.evt.cancelled {
		return
	}
	h.evt.cancelled = true
	eq.cancelled += 1

	// mark-and-skip trades heap space for O(1) cancellation; rebuild
	// when cancelled entries dominate so the heap cannot grow without
	// bound under cancellation-heavy workloads
	if len(eq.events) > compactionFloor && eq.cancelled*2 > len(eq.events) {
		eq.compact()
	}
}

// compact rebuilds the heap without its cancelled entries
func (eq *eventQueue) compact() {
	live := eventHeap{}
	for _, evt := range eq.events {
		if !evt.cancelled {
			live = append(live, evt)
		}
	}
	eq.events = live
	heap.Init(&eq.events)
	eq.cancelled = 0
}

// pending reports the number of entries in the heap, cancelled ones
// included
func (eq *eventQueue) pending() int {
	return len(eq.events)
}

// event manager states
const (
	evtMgrIdle int = iota
	evtMgrRunning
	evtMgrPaused
	evtMgrDestroyed
)

// destroyEvent is a handler registered for guaranteed invocation during
// Destroy, used by components holding non-memory resources (reader
// goroutines, descriptors) that need deterministic teardown
type destroyEvent struct {
	context any
	data    any
	handler EventHandlerFunction
}

// EventManager owns one event queue and the simulation clock.  All
// model computation runs synchronously inside handler invocations on
// the goroutine that called Run.  Schedule alone may be called from
// other goroutines (e.g. by an I/O reader posting arrivals), so the
// queue is guarded by a mutex.
type EventManager struct {
	mu    sync.Mutex
	queue *eventQueue
	now   vrtime.Time
	state int

	stopRequested bool
	destroyEvts   []destroyEvent

	// optional observers
	traceMgr *TraceManager
	metrics  *SimCollector

	// counts handler invocations across the manager's lifetime
	executed int64
}

// CreateEventManager is a constructor.  The clock starts at virtual
// time zero with nothing scheduled.
func CreateEventManager() *EventManager {
	evtMgr := new(EventManager)
	evtMgr.queue = createEventQueue()
	evtMgr.now = vrtime.SecondsToTime(0.0)
	evtMgr.state = evtMgrIdle
	evtMgr.destroyEvts = []destroyEvent{}
	return evtMgr
}

// SetTraceManager attaches a trace manager that records event dispatch
func (evtMgr *EventManager) SetTraceManager(tm *TraceManager) {
	evtMgr.traceMgr = tm
}

// SetCollector attaches Prometheus instrumentation.  A nil collector
// is inert.
func (evtMgr *EventManager) SetCollector(sc *SimCollector) {
	evtMgr.metrics = sc
}

// Schedule arranges for handler(evtMgr, context, data) to run at the
// current time plus offset, and returns a handle usable with Cancel.
// This is the one entry point that is safe to call from another
// goroutine.
func (evtMgr *EventManager) Schedule(context any, data any, handler EventHandlerFunction,
	offset vrtime.Time) *EventHandle {

	if offset.Ticks() < 0 {
		panic(fmt.Sprintf("negative scheduling offset %f", offset.Seconds()))
	}

	evtMgr.mu.Lock()
	defer evtMgr.mu.Unlock()

	if evtMgr.state == evtMgrDestroyed {
		panic("Schedule called on destroyed EventManager")
	}

	when := vrtime.SecondsToTime(evtMgr.now.Seconds() + offset.Seconds())
	handle := evtMgr.queue.insert(when, context, data, handler)
	if evtMgr.metrics != nil {
		evtMgr.metrics.SetQueueDepth(evtMgr.queue.pending())
	}
	return handle
}

// ScheduleNow schedules the handler at the current virtual time; it
// runs after events already queued for this instant (FIFO tie-break)
func (evtMgr *EventManager) ScheduleNow(context any, data any, handler EventHandlerFunction) *EventHandle {
	return evtMgr.Schedule(context, data, handler, vrtime.SecondsToTime(0.0))
}

// Cancel marks the identified event inert.  Cancelling an event that
// already ran, or cancelling twice, is a no-op.
func (evtMgr *EventManager) Cancel(handle *EventHandle) {
	evtMgr.mu.Lock()
	defer evtMgr.mu.Unlock()
	evtMgr.queue.cancel(handle)
}

// Now returns the current virtual time.  Inside a handler it is that
// handler's scheduled time.  The clock of a destroyed manager is
// meaningless, so asking for it fails loudly.
func (evtMgr *EventManager) Now() vrtime.Time {
	if evtMgr.state == evtMgrDestroyed {
		panic("Now called on destroyed EventManager")
	}
	return evtMgr.now
}

// Stop requests that Run return after the currently executing handler
// completes.  The manager is left Paused and Run may be called again.
// Like Schedule, Stop may be called from another goroutine.
func (evtMgr *EventManager) Stop() {
	evtMgr.mu.Lock()
	evtMgr.stopRequested = true
	evtMgr.mu.Unlock()
}

// Run dispatches events in (time, sequence) order until the queue
// drains, Stop is called, or the next event lies beyond stopAt
// (seconds).  Events exactly at stopAt still run.
func (evtMgr *EventManager) Run(stopAt float64) {
	if evtMgr.state == evtMgrDestroyed {
		panic("Run called on destroyed EventManager")
	}
	evtMgr.state = evtMgrRunning
	evtMgr.mu.Lock()
	evtMgr.stopRequested = false
	evtMgr.mu.Unlock()

	for {
		evtMgr.mu.Lock()
		nxt := evtMgr.queue.peekEarliest()
		if nxt == nil || nxt.time.Seconds() > stopAt || evtMgr.stopRequested {
			evtMgr.mu.Unlock()
			break
		}
		evt := evtMgr.queue.popEarliest()
		// the single point of time advancement
		evtMgr.now = evt.time
		evtMgr.mu.Unlock()

		if evt.cancelled {
			continue
		}
		evt.executed = true
		evt.handler(evtMgr, evt.context, evt.data)
		evtMgr.executed += 1

		if evtMgr.metrics != nil {
			evtMgr.metrics.IncEventsExecuted()
			evtMgr.metrics.SetQueueDepth(evtMgr.queue.pending())
		}
		if evtMgr.traceMgr != nil && evtMgr.traceMgr.Active() {
			AddEvtTrace(evtMgr.traceMgr, evt.time, evt.seq, "exec")
		}
	}
	evtMgr.state = evtMgrPaused
}

// RunAll dispatches events until the queue drains or Stop is called
func (evtMgr *EventManager) RunAll() {
	evtMgr.Run(infFuture)
}

// infFuture is a stop time beyond any schedulable event
const infFuture = 1.0e30

// ScheduleDestroy registers a handler to be invoked during Destroy,
// after all pending events have been cancelled.  Destroy handlers run
// in registration order so teardown is deterministic.
func (evtMgr *EventManager) ScheduleDestroy(context any, data any, handler EventHandlerFunction) {
	evtMgr.mu.Lock()
	defer evtMgr.mu.Unlock()
	evtMgr.destroyEvts = append(evtMgr.destroyEvts, destroyEvent{context: context, data: data, handler: handler})
}

// Destroy cancels every pending event, invokes the registered destroy
// handlers in order, and retires the manager.  Any further use of the
// manager other than garbage collection is an error.
func (evtMgr *EventManager) Destroy() {
	evtMgr.mu.Lock()
	if evtMgr.state == evtMgrDestroyed {
		evtMgr.mu.Unlock()
		return
	}
	pending := evtMgr.queue.pending()
	evtMgr.queue.events = eventHeap{}
	evtMgr.queue.cancelled = 0
	destroyEvts := evtMgr.destroyEvts
	evtMgr.destroyEvts = nil
	evtMgr.mu.Unlock()

	if pending > 0 {
		log.WithFields(log.Fields{"pending": pending, "time": evtMgr.now.Seconds()}).
			Debug("discarding pending events at destroy")
	}

	for _, de := range destroyEvts {
		de.handler(evtMgr, de.context, de.data)
	}
	evtMgr.state = evtMgrDestroyed
}

// ExecutedEvents reports how many handlers this manager has dispatched
func (evtMgr *EventManager) ExecutedEvents() int64 {
	return evtMgr.executed
}

// PendingEvents reports the number of queue entries, including ones
// cancelled but not yet skipped
func (evtMgr *EventManager) PendingEvents() int {
	evtMgr.mu.Lock()
	defer evtMgr.mu.Unlock()
	return evtMgr.queue.pending()
}
