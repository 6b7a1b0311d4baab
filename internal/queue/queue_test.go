package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-signer/internal/queue"
)

const waitTimeout = 5 * time.Second

func TestQueueRunsTasksInSubmissionOrder(t *testing.T) {
	q := queue.New()
	ctx := t.Context()

	var (
		mu       sync.Mutex
		executed []int
		active   atomic.Int32
		overlap  atomic.Bool
	)

	const count = 50
	tasks := make([]*queue.Task, 0, count)
	for i := 0; i < count; i++ {
		tasks = append(tasks, q.Enqueue(ctx, "op", func(context.Context) (any, error) {
			if active.Add(1) > 1 {
				overlap.Store(true)
			}
			defer active.Add(-1)

			time.Sleep(100 * time.Microsecond)

			mu.Lock()
			executed = append(executed, i)
			mu.Unlock()

			return i, nil
		}))
	}

	for i, task := range tasks {
		value, err := task.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, value)
	}

	assert.False(t, overlap.Load(), "operations overlapped")
	require.Len(t, executed, count)
	for i, v := range executed {
		assert.Equal(t, i, v)
	}
}

func TestQueueNeverOverlapsConcurrentCallers(t *testing.T) {
	q := queue.New()
	ctx := t.Context()

	var (
		active  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := queue.Do(ctx, q, "op", func(context.Context) (struct{}, error) {
				if active.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(200 * time.Microsecond)
				active.Add(-1)
				return struct{}{}, nil
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()
	assert.False(t, overlap.Load())
}

func TestQueueIsolatesTaskFailures(t *testing.T) {
	q := queue.New()
	ctx := t.Context()

	boom := errors.New("boom")

	failing := q.Enqueue(ctx, "fail", func(context.Context) (any, error) {
		return nil, boom
	})
	panicking := q.Enqueue(ctx, "panic", func(context.Context) (any, error) {
		panic("card exploded")
	})
	succeeding := q.Enqueue(ctx, "ok", func(context.Context) (any, error) {
		return "ok", nil
	})

	_, err := failing.Wait(ctx)
	assert.ErrorIs(t, err, boom)

	_, err = panicking.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, `task "panic" panicked: card exploded`, err.Error())

	value, err := succeeding.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
}

func TestQueueDrainedSharedAcrossCallers(t *testing.T) {
	q := queue.New()
	ctx := t.Context()

	release := make(chan struct{})
	q.Enqueue(ctx, "blocking", func(context.Context) (any, error) {
		<-release
		return nil, nil
	})

	first := q.Drained()
	second := q.Drained()
	assert.Equal(t, first, second, "flush callers must share one drain signal")

	select {
	case <-first:
		t.Fatal("drained before the running task finished")
	default:
	}

	var wg sync.WaitGroup
	flushed := atomic.Int32{}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := q.Flush(ctx); err == nil {
				flushed.Add(1)
			}
		}()
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int32(3), flushed.Load())
	assert.False(t, q.Busy())
}

func TestQueueDrainedWhenIdle(t *testing.T) {
	q := queue.New()

	select {
	case <-q.Drained():
	case <-time.After(waitTimeout):
		t.Fatal("idle queue did not report drained")
	}

	require.NoError(t, q.Flush(t.Context()))
}

func TestQueueResetRejectsWaitingTasks(t *testing.T) {
	q := queue.New()
	ctx := t.Context()

	started := make(chan struct{})
	release := make(chan struct{})

	running := q.Enqueue(ctx, "running", func(context.Context) (any, error) {
		close(started)
		<-release
		return "finished", nil
	})
	<-started

	pendingA := q.Enqueue(ctx, "a", func(context.Context) (any, error) {
		t.Error("reset task must not run")
		return nil, nil
	})
	pendingB := q.Enqueue(ctx, "b", func(context.Context) (any, error) {
		t.Error("reset task must not run")
		return nil, nil
	})

	drained := q.Drained()

	assert.Equal(t, 2, q.Reset())
	assert.Equal(t, 0, q.Len())

	_, err := pendingA.Wait(ctx)
	assert.ErrorIs(t, err, queue.ErrQueueReset)
	_, err = pendingB.Wait(ctx)
	assert.ErrorIs(t, err, queue.ErrQueueReset)

	select {
	case <-drained:
	case <-time.After(waitTimeout):
		t.Fatal("reset did not release flush waiters")
	}

	close(release)
	value, err := running.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "finished", value)

	// the worker restarts on the next enqueue
	value, err = queue.Do(ctx, q, "after-reset", func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestQueueReentrantDoRunsInline(t *testing.T) {
	q := queue.New()
	ctx := t.Context()

	value, err := queue.Do(ctx, q, "outer", func(ctx context.Context) (string, error) {
		assert.True(t, q.Holds(ctx))
		return queue.Do(ctx, q, "inner", func(context.Context) (string, error) {
			return "inner", nil
		})
	})

	require.NoError(t, err)
	assert.Equal(t, "inner", value)
	assert.False(t, q.Holds(ctx))
}

func TestTaskWaitHonoursContext(t *testing.T) {
	q := queue.New()

	release := make(chan struct{})
	defer close(release)

	task := q.Enqueue(t.Context(), "blocking", func(context.Context) (any, error) {
		<-release
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	_, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	value, err := task.Result()
	assert.Nil(t, value)
	assert.NoError(t, err)
}

type recordingObserver struct {
	mu       sync.Mutex
	finished []string
	resets   []int
}

func (r *recordingObserver) TaskEnqueued(string, int) {}

func (r *recordingObserver) TaskFinished(label string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, label)
}

func (r *recordingObserver) QueueReset(rejected int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, rejected)
}

func TestQueueObserver(t *testing.T) {
	observer := &recordingObserver{}
	q := queue.New(queue.WithObserver(observer), queue.WithName("test"))
	ctx := t.Context()

	_, err := queue.Do(ctx, q, "first", func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	_, err = queue.Do(ctx, q, "second", func(context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)
	q.Reset()

	observer.mu.Lock()
	defer observer.mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, observer.finished)
	assert.Equal(t, []int{0}, observer.resets)
}
