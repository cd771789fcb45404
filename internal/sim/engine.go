package sim

import (
	"container/heap"
	"context"
	"time"
)

// ctxCheckEvery bounds how many events run between cancellation checks.
const ctxCheckEvery = 4096

type event struct {
	at  time.Duration
	seq uint64
	fn  func()
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return x
}

// Engine is a single-threaded discrete-event scheduler. Simulated time only
// advances when an event runs; events with the same timestamp run in the
// order they were scheduled.
type Engine struct {
	now       time.Duration
	seq       uint64
	processed uint64
	queue     eventQueue
}

// NewEngine returns an engine at time zero.
func NewEngine() *Engine {
	e := &Engine{}
	heap.Init(&e.queue)
	return e
}

// Now returns the current simulated time.
func (e *Engine) Now() time.Duration { return e.now }

// Schedule runs fn after delay relative to Now.
func (e *Engine) Schedule(delay time.Duration, fn func()) {
	if delay < 0 {
		delay = 0
	}
	e.ScheduleAt(e.now+delay, fn)
}

// ScheduleAt runs fn at the absolute time at. Events in the past are ignored
// and false is returned.
func (e *Engine) ScheduleAt(at time.Duration, fn func()) bool {
	if at < e.now {
		return false
	}
	e.seq++
	heap.Push(&e.queue, &event{at: at, seq: e.seq, fn: fn})
	return true
}

// Run executes events in time order until the queue is empty or the next
// event lies after until. Events at exactly until still run. The context is
// checked periodically; on cancellation Run returns ctx.Err() with the
// remaining events left queued.
func (e *Engine) Run(ctx context.Context, until time.Duration) error {
	for n := 0; e.queue.Len() > 0; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		next := e.queue[0]
		if next.at > until {
			break
		}
		heap.Pop(&e.queue)
		e.now = next.at
		e.processed++
		next.fn()
	}
	if e.now < until {
		e.now = until
	}
	return nil
}

// Pending returns the number of queued events.
func (e *Engine) Pending() int { return e.queue.Len() }

// Processed returns the number of events run so far.
func (e *Engine) Processed() uint64 { return e.processed }
