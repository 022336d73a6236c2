package luasched

import (
	"context"
	"weak"
)

// Spawner submits work to a Runtime's executor and futures queue. It holds
// only weak references, so a Spawner kept by a script or host does not keep
// the Runtime alive. Using it after the Runtime is gone or closed returns a
// *ContractViolation.
type Spawner struct {
	exec    weak.Pointer[Executor]
	futures weak.Pointer[FuturesQueue]
}

func newSpawner(exec *Executor, futures *FuturesQueue) Spawner {
	return Spawner{
		exec:    weak.Make(exec),
		futures: weak.Make(futures),
	}
}

func (s Spawner) executor(op string) (*Executor, error) {
	e := s.exec.Value()
	if e == nil {
		return nil, &ContractViolation{Op: op, Reason: "executor was dropped"}
	}
	return e, nil
}

// Spawn runs fn on the background pool. The context passed to fn is
// cancelled when the runtime is closed.
func Spawn[T any](s Spawner, fn func(ctx context.Context) (T, error)) (*Task[T], error) {
	e, err := s.executor("spawn")
	if err != nil {
		return nil, err
	}
	return submit(e, "spawn", e.workers, fn)
}

// SpawnBlocking runs fn on the blocking pool. Use it for work that blocks
// its goroutine, such as file or database access.
func SpawnBlocking[T any](s Spawner, fn func() (T, error)) (*Task[T], error) {
	e, err := s.executor("spawn_blocking")
	if err != nil {
		return nil, err
	}
	return submit(e, "spawn_blocking", e.blocking, func(context.Context) (T, error) {
		return fn()
	})
}

// SpawnLocal adds f to the futures queue. f is polled on the scheduler
// goroutine and may touch the Lua state.
func (s Spawner) SpawnLocal(f Future) error {
	q := s.futures.Value()
	if q == nil {
		return &ContractViolation{Op: "spawn_local", Reason: "futures queue was dropped"}
	}
	if err := q.Push(f); err != nil {
		return &ContractViolation{Op: "spawn_local", Reason: "futures queue is closed"}
	}
	return nil
}
