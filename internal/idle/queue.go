// Package idle provides the task queue the document uses for deferred work
// (code recoloring, image load completions). Tasks may be posted from any
// goroutine but only run inside RunPending, on the goroutine that owns the
// document.
package idle

import (
	"context"
	"sync"
	"time"

	"github.com/bethropolis/scribe/internal/logger"
	"github.com/bethropolis/scribe/internal/utils"
)

type task struct {
	id int
	fn func()
}

// Queue is a FIFO of idle callbacks. It implements measure.Scheduler.
type Queue struct {
	mu     sync.Mutex
	nextID int
	tasks  []task
	notify chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// RequestIdle enqueues fn and returns an id usable with CancelIdle.
func (q *Queue) RequestIdle(fn func()) int {
	q.mu.Lock()
	q.nextID++
	id := q.nextID
	q.tasks = append(q.tasks, task{id: id, fn: fn})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return id
}

// CancelIdle drops a queued task. Unknown ids are ignored.
func (q *Queue) CancelIdle(id int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.tasks {
		if t.id == id {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return
		}
	}
}

// Pending is the number of queued tasks.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// RunPending runs the tasks queued at call time, in order, and returns how
// many ran. Tasks queued while running wait for the next call.
func (q *Queue) RunPending(ctx context.Context) int {
	q.mu.Lock()
	batch := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for i, t := range batch {
		if err := ctx.Err(); err != nil {
			// Put back what did not run, ahead of anything posted meanwhile.
			q.mu.Lock()
			q.tasks = append(append([]task(nil), batch[i:]...), q.tasks...)
			q.mu.Unlock()
			logger.DebugTagf("idle", "RunPending interrupted after %d of %d tasks: %v", i, len(batch), err)
			return i
		}
		t.fn()
	}
	return len(batch)
}

// Wait blocks until a task is queued or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	if q.Pending() > 0 {
		return nil
	}
	select {
	case <-q.notify:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain runs tasks until the queue stays empty or ctx is done. Tasks that
// post follow-up tasks are run too.
func (q *Queue) Drain(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n := q.RunPending(ctx)
		total += n
		if n == 0 {
			return total
		}
	}
	return total
}

// Debouncer posts a task to a queue once calls stop arriving for a delay.
type Debouncer struct {
	queue *Queue
	delay time.Duration
	d     utils.Debouncer
}

// NewDebouncer returns a debouncer posting to q after delay.
func NewDebouncer(q *Queue, delay time.Duration) *Debouncer {
	return &Debouncer{queue: q, delay: delay}
}

// Trigger restarts the delay; fn is queued when it expires.
func (d *Debouncer) Trigger(fn func()) {
	d.d.Debounce(d.delay, func() {
		d.queue.RequestIdle(fn)
	})
}

// Stop cancels a pending trigger.
func (d *Debouncer) Stop() bool {
	return d.d.Stop()
}
