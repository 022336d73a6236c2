package luasched

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestExecutor(t *testing.T, workers, blocking int) *Executor {
	t.Helper()
	e := newExecutor(workers, blocking, slog.New(slog.DiscardHandler), nil)
	t.Cleanup(e.Close)
	return e
}

func TestSpawnReturnsValue(t *testing.T) {
	e := newTestExecutor(t, 2, 2)
	s := newSpawner(e, newFuturesQueue(nil))

	task, err := Spawn(s, func(context.Context) (string, error) { return "hi", nil })
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := task.Wait(ctx)
	if err != nil || v != "hi" {
		t.Fatalf("Wait = %q, %v", v, err)
	}
}

func TestSpawnBlockingError(t *testing.T) {
	e := newTestExecutor(t, 1, 1)
	s := newSpawner(e, newFuturesQueue(nil))

	boom := errors.New("boom")
	task, err := SpawnBlocking(s, func() (int, error) { return 0, boom })
	if err != nil {
		t.Fatalf("SpawnBlocking failed: %v", err)
	}
	<-task.Done()
	if _, err := task.Result(); !errors.Is(err, boom) {
		t.Fatalf("Result error = %v, want boom", err)
	}
}

func TestTaskPanicRecovered(t *testing.T) {
	e := newTestExecutor(t, 1, 1)
	s := newSpawner(e, newFuturesQueue(nil))

	task, err := Spawn(s, func(context.Context) (int, error) { panic("kaboom") })
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	<-task.Done()
	if _, err := task.Result(); err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("Result error = %v", err)
	}
	e.Wait()
	if e.Outstanding() != 0 {
		t.Fatalf("Outstanding = %d after panic", e.Outstanding())
	}
}

func TestWorkerPoolBound(t *testing.T) {
	e := newTestExecutor(t, 2, 1)
	s := newSpawner(e, newFuturesQueue(nil))

	var running, peak atomic.Int32
	tasks := make([]*Task[int], 0, 8)
	for i := 0; i < 8; i++ {
		task, err := Spawn(s, func(context.Context) (int, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return 0, nil
		})
		if err != nil {
			t.Fatalf("Spawn failed: %v", err)
		}
		tasks = append(tasks, task)
	}
	for _, task := range tasks {
		<-task.Done()
	}
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestTaskOnDoneAfterFinish(t *testing.T) {
	task := newTask[int]()
	task.finish(1, nil)
	called := false
	task.onDone(func() { called = true })
	if !called {
		t.Fatal("onDone on a finished task did not run")
	}
}

func TestSpawnerContractViolations(t *testing.T) {
	var s Spawner
	if _, err := Spawn(s, func(context.Context) (int, error) { return 0, nil }); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("Spawn on zero Spawner = %v", err)
	}
	if err := s.SpawnLocal(FutureFunc(func(*Waker) bool { return true })); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("SpawnLocal on zero Spawner = %v", err)
	}

	e := newTestExecutor(t, 1, 1)
	s = newSpawner(e, newFuturesQueue(nil))
	e.Close()
	_, err := SpawnBlocking(s, func() (int, error) { return 0, nil })
	var cv *ContractViolation
	if !errors.As(err, &cv) || cv.Op != "spawn_blocking" {
		t.Fatalf("SpawnBlocking after Close = %v", err)
	}
}

func TestSpawnLocalRunsOnScheduler(t *testing.T) {
	rt := newTestRuntime(t)
	polls := 0
	err := rt.Spawner().SpawnLocal(FutureFunc(func(w *Waker) bool {
		polls++
		if polls < 3 {
			w.Wake()
			return false
		}
		return true
	}))
	if err != nil {
		t.Fatalf("SpawnLocal failed: %v", err)
	}
	runWithTimeout(t, rt)
	if polls != 3 {
		t.Fatalf("polls = %d, want 3", polls)
	}
}

func TestSpawnLocalResumesThread(t *testing.T) {
	rt := newTestRuntime(t)
	spawnChunk(t, rt, `
		local id = spawn(function() marker = "thread" end)
		track(id)
		wait(id)
		seen = marker
	`)
	var order []string
	rt.Spawner().SpawnLocal(FutureFunc(func(*Waker) bool {
		order = append(order, "future")
		return true
	}))
	runWithTimeout(t, rt)
	if len(order) != 1 {
		t.Fatalf("future polled %d times", len(order))
	}
	if rt.L.GetGlobal("seen").String() != "thread" {
		t.Fatalf("seen = %v", rt.L.GetGlobal("seen"))
	}
}
