package queue

import (
	"context"
	"sync"
)

// Task is a handle on an enqueued operation. It settles exactly once.
type Task struct {
	label string
	ctx   context.Context
	op    Operation

	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func newTask(ctx context.Context, label string, op Operation) *Task {
	return &Task{
		label: label,
		ctx:   ctx,
		op:    op,
		done:  make(chan struct{}),
	}
}

// Label returns the label the task was enqueued with
func (t *Task) Label() string {
	return t.label
}

// Done is closed once the task resolved or rejected
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result returns the outcome of a settled task. Calling it before Done is closed returns (nil, nil).
func (t *Task) Result() (any, error) {
	select {
	case <-t.done:
		return t.value, t.err
	default:
		return nil, nil
	}
}

// Wait blocks until the task settled or ctx is done.
// A cancelled ctx only stops waiting, the task itself keeps its place in the queue.
func (t *Task) Wait(ctx context.Context) (any, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Task) settle(value any, err error) bool {
	settled := false
	t.once.Do(func() {
		t.value = value
		t.err = err
		settled = true
		close(t.done)
	})

	return settled
}
