package luasched

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultBlockingWorkers bounds the blocking pool when no size is configured.
const DefaultBlockingWorkers = 64

// Executor runs Go work off the scheduler goroutine. Background tasks and
// blocking tasks have separate bounded pools.
type Executor struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	workers  *semaphore.Weighted
	blocking *semaphore.Weighted

	wg          sync.WaitGroup
	outstanding atomic.Int64
	closed      atomic.Bool
	notify      func()
}

func newExecutor(workers, blocking int, logger *slog.Logger, notify func()) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if blocking <= 0 {
		blocking = DefaultBlockingWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		workers:  semaphore.NewWeighted(int64(workers)),
		blocking: semaphore.NewWeighted(int64(blocking)),
		notify:   notify,
	}
}

// Outstanding returns the number of submitted tasks that have not finished.
func (e *Executor) Outstanding() int {
	return int(e.outstanding.Load())
}

// Close cancels the context passed to running tasks and refuses new ones.
// It does not wait for running tasks.
func (e *Executor) Close() {
	if e.closed.Swap(true) {
		return
	}
	e.cancel()
}

// Wait blocks until every submitted task has returned.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// Task is the handle to work submitted to an Executor.
type Task[T any] struct {
	done  chan struct{}
	mu    sync.Mutex
	value T
	err   error
	subs  []func()
}

func newTask[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

// Done is closed when the task has finished.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Result returns the task's value and error. It is only meaningful after
// Done is closed.
func (t *Task[T]) Result() (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.err
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// onDone runs fn once the task has finished. fn runs immediately when it
// already has.
func (t *Task[T]) onDone(fn func()) {
	t.mu.Lock()
	select {
	case <-t.done:
		t.mu.Unlock()
		fn()
		return
	default:
	}
	t.subs = append(t.subs, fn)
	t.mu.Unlock()
}

func (t *Task[T]) finish(v T, err error) {
	t.mu.Lock()
	t.value, t.err = v, err
	subs := t.subs
	t.subs = nil
	close(t.done)
	t.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// submit starts fn on its own goroutine once sem has room. The caller never
// blocks on the pool.
func submit[T any](e *Executor, op string, sem *semaphore.Weighted, fn func(context.Context) (T, error)) (*Task[T], error) {
	if e.closed.Load() {
		return nil, &ContractViolation{Op: op, Reason: "executor is closed"}
	}
	t := newTask[T]()
	e.outstanding.Add(1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.outstanding.Add(-1)
			if e.notify != nil {
				e.notify()
			}
		}()

		if err := sem.Acquire(e.ctx, 1); err != nil {
			var zero T
			t.finish(zero, err)
			return
		}
		defer sem.Release(1)

		v, err := callTask(e, op, fn)
		t.finish(v, err)
	}()
	return t, nil
}

func callTask[T any](e *Executor, op string, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("luasched task panic", "op", op, "panic", r)
			err = fmt.Errorf("luasched: %s: task panic: %v", op, r)
		}
	}()
	return fn(e.ctx)
}
