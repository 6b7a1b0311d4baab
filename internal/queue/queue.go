// Package queue implements a single-worker FIFO task runner guarding a resource that
// cannot tolerate concurrent access, such as the channel to a secure element.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// closedChan is returned by Drained when there is nothing to wait for
var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// heldKey marks a context as belonging to a task currently executed by q
type heldKey struct {
	q *Queue
}

// Queue runs enqueued operations one at a time in submission order.
// The zero value is not usable, use New.
type Queue struct {
	name     string
	observer Observer

	mu      sync.Mutex
	tasks   []*Task
	running bool
	drained chan struct{} // shared by all Drained callers of one busy cycle
}

// New creates an idle queue
func New(opts ...Option) *Queue {
	q := &Queue{
		name:     "default",
		observer: noopObserver{},
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Enqueue appends op and returns its task handle without waiting for it.
// If ctx belongs to a task of this queue the operation runs inline, since the caller already
// holds exclusive access and queueing behind itself would deadlock.
func (q *Queue) Enqueue(ctx context.Context, label string, op Operation) *Task {
	task := newTask(ctx, label, op)

	if q.Holds(ctx) {
		q.execute(task)
		return task
	}

	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	depth := len(q.tasks)
	start := !q.running
	if start {
		q.running = true
	}
	q.mu.Unlock()

	q.observer.TaskEnqueued(label, depth)

	if start {
		go q.run()
	}

	return task
}

// Holds reports whether ctx was handed to an operation currently executed by q
func (q *Queue) Holds(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	held, _ := ctx.Value(heldKey{q: q}).(bool)
	return held
}

// Drained returns a channel closed once the queue has no waiting and no running task.
// Concurrent callers during the same busy cycle receive the same channel.
func (q *Queue) Drained() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running && len(q.tasks) == 0 {
		return closedChan
	}

	if q.drained == nil {
		q.drained = make(chan struct{})
	}

	return q.drained
}

// Flush blocks until the queue drained or ctx is done
func (q *Queue) Flush(ctx context.Context) error {
	select {
	case <-q.Drained():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset rejects every task that has not started yet with ErrQueueReset and releases pending
// Flush callers. A task that is already running is not interrupted.
// Returns the number of rejected tasks.
func (q *Queue) Reset() int {
	q.mu.Lock()
	pending := q.tasks
	q.tasks = nil
	if q.drained != nil {
		close(q.drained)
		q.drained = nil
	}
	q.mu.Unlock()

	for _, task := range pending {
		task.settle(nil, errors.Wrapf(ErrQueueReset, "task %q rejected", task.label))
	}

	if len(pending) > 0 {
		log.Debug().Str("queue", q.name).Int("rejected", len(pending)).Msg("Queue reset")
	}
	q.observer.QueueReset(len(pending))

	return len(pending)
}

// Len returns the number of tasks waiting to run
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}

// Busy reports whether the worker is active
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.running
}

func (q *Queue) run() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.running = false
			if q.drained != nil {
				close(q.drained)
				q.drained = nil
			}
			q.mu.Unlock()
			return
		}

		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.execute(task)
	}
}

func (q *Queue) execute(task *Task) {
	start := time.Now()
	value, err := q.invoke(task)
	q.observer.TaskFinished(task.label, time.Since(start), err)
	task.settle(value, err)
}

func (q *Queue) invoke(task *Task) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("queue", q.name).Str("task", task.label).Interface("panic", r).Msg("Queue task panicked")
			value, err = nil, errors.Errorf("task %q panicked: %v", task.label, r)
		}
	}()

	ctx := task.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	return task.op(context.WithValue(ctx, heldKey{q: q}, true))
}

// Do enqueues op on q and waits for its outcome
func Do[T any](ctx context.Context, q *Queue, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	task := q.Enqueue(ctx, label, func(ctx context.Context) (any, error) {
		return op(ctx)
	})

	value, err := task.Wait(ctx)
	if err != nil {
		return zero, err
	}

	result, ok := value.(T)
	if !ok && value != nil {
		return zero, errors.Errorf("task %q returned %T", label, value)
	}

	return result, nil
}
