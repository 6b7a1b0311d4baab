package queue

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrQueueReset is returned by tasks that were still waiting when the queue was reset
var ErrQueueReset = errors.New("queue reset")

// Operation is a unit of work executed by the queue worker
type Operation func(ctx context.Context) (any, error)

// Observer receives task lifecycle notifications (e.g. metrics)
type Observer interface {
	// TaskEnqueued is called after a task was appended, depth is the number of waiting tasks
	TaskEnqueued(label string, depth int)

	// TaskFinished is called once an executed task completed
	TaskFinished(label string, duration time.Duration, err error)

	// QueueReset is called after Reset rejected the given number of waiting tasks
	QueueReset(rejected int)
}

// Option configures a Queue
type Option func(q *Queue)

// WithObserver attaches an Observer to the queue
func WithObserver(observer Observer) Option {
	return func(q *Queue) {
		q.observer = observer
	}
}

// WithName sets the queue name used in log output
func WithName(name string) Option {
	return func(q *Queue) {
		q.name = name
	}
}

type noopObserver struct{}

func (noopObserver) TaskEnqueued(string, int)                  {}
func (noopObserver) TaskFinished(string, time.Duration, error) {}
func (noopObserver) QueueReset(int)                            {}
