package luasched

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/haivivi/luasched/pkg/kv"
)

// State is the lifecycle stage of a Runtime.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Runtime schedules Lua threads on one goroutine, interleaving them with
// futures and executor tasks.
type Runtime struct {
	L      *lua.LState
	id     uuid.UUID
	logger *slog.Logger
	cfg    Config
	store  kv.Store

	ids      idGenerator
	spawned  threadQueue
	deferred threadQueue
	futures  *FuturesQueue
	results  *ThreadResultMap
	exit     *Exit
	exec     *Executor

	wake    chan struct{}
	status  atomic.Int32
	current *queuedThread
	onError func(ThreadID, error)

	coResume  lua.LValue
	protected []string
	ownsState bool
	closeOnce sync.Once
}

// New creates a Runtime driving threads of L. When L is nil a fresh state
// is created and closed by Close.
func New(L *lua.LState, opts ...Option) *Runtime {
	rt := &Runtime{
		id:      uuid.New(),
		logger:  slog.Default(),
		cfg:     DefaultConfig(),
		results: newThreadResultMap(),
		wake:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.cfg = rt.cfg.withDefaults()
	if rt.logger == nil {
		rt.logger = slog.Default()
	}
	rt.logger = rt.logger.With("runtime", rt.id.String())
	if rt.onError == nil {
		rt.onError = rt.logThreadError
	}

	if L == nil {
		L = lua.NewState()
		rt.ownsState = true
	}
	rt.L = L
	if L.GetGlobal(lua.CoroutineLibName) == lua.LNil {
		L.Push(L.NewFunction(lua.OpenCoroutine))
		L.Push(lua.LString(lua.CoroutineLibName))
		L.Call(1, 0)
	}
	rt.coResume = L.GetField(L.GetGlobal(lua.CoroutineLibName), "resume")
	rt.guardProtected(L, "pcall")
	rt.guardProtected(L, "xpcall")

	rt.exit = newExit(rt.signal)
	rt.futures = newFuturesQueue(rt.signal)
	rt.exec = newExecutor(rt.cfg.Workers, rt.cfg.BlockingWorkers, rt.logger, rt.signal)
	return rt
}

// ID returns the session id used in log lines.
func (rt *Runtime) ID() uuid.UUID { return rt.id }

// Config returns the effective configuration.
func (rt *Runtime) Config() Config { return rt.cfg }

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// State returns the current lifecycle stage.
func (rt *Runtime) State() State { return State(rt.status.Load()) }

// Handle returns a weak capability for runtime operations.
func (rt *Runtime) Handle() Handle {
	return Handle{rt: weak.Make(rt)}
}

// Spawner returns a weak capability for submitting work.
func (rt *Runtime) Spawner() Spawner {
	return newSpawner(rt.exec, rt.futures)
}

// Results returns the result map.
func (rt *Runtime) Results() *ThreadResultMap { return rt.results }

// SpawnThread queues src on the spawn queue. Spawned threads run before
// anything deferred in the same tick.
func (rt *Runtime) SpawnThread(src ThreadSource, args ...lua.LValue) (ThreadID, error) {
	return rt.enqueue(rt.L, &rt.spawned, "spawn_thread", src, args)
}

// DeferThread queues src on the defer queue. Deferred threads run once the
// spawn queue of the tick is drained.
func (rt *Runtime) DeferThread(src ThreadSource, args ...lua.LValue) (ThreadID, error) {
	return rt.enqueue(rt.L, &rt.deferred, "push_thread_back", src, args)
}

func (rt *Runtime) enqueue(L *lua.LState, q *threadQueue, op string, src ThreadSource, args []lua.LValue) (ThreadID, error) {
	if rt.State() == StateStopped {
		return 0, &ContractViolation{Op: op, Reason: "runtime is stopped"}
	}
	th, err := src.IntoThread(L)
	if err != nil {
		return 0, &ConversionError{Err: err}
	}
	id := rt.ids.next()
	q.push(queuedThread{id: id, thread: th, args: args})
	rt.signal()
	return id, nil
}

// SetExitCode makes Run return code once the running thread yields.
// Later calls overwrite earlier ones.
func (rt *Runtime) SetExitCode(code ExitCode) {
	rt.exit.Set(code)
}

// ExitCode returns the code set so far.
func (rt *Runtime) ExitCode() (ExitCode, bool) {
	return rt.exit.Get()
}

// TrackThread keeps the result of id until it is taken.
func (rt *Runtime) TrackThread(id ThreadID) {
	rt.results.Track(id)
}

// ThreadResult takes the result of a tracked thread.
func (rt *Runtime) ThreadResult(id ThreadID) (ThreadResult, bool) {
	return rt.results.Remove(id)
}

// WaitForThread blocks until id has a result. It must not be called from the
// goroutine running Run.
func (rt *Runtime) WaitForThread(ctx context.Context, id ThreadID) error {
	return rt.results.Wait(ctx, id)
}

// RunBlocking runs until there is nothing left to do and returns the exit
// code.
func (rt *Runtime) RunBlocking() ExitCode {
	code, err := rt.Run(context.Background())
	if err != nil {
		rt.logger.Error("luasched run failed", "error", err)
	}
	return code
}

// Run drives the scheduler until no thread, future or executor task is
// left, or until an exit code is set. It returns ExitSuccess when the work
// ran out without an exit code.
func (rt *Runtime) Run(ctx context.Context) (ExitCode, error) {
	if !rt.status.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		if rt.State() == StateStopped {
			return ExitFailure, ErrStopped
		}
		return ExitFailure, ErrRunning
	}
	defer rt.status.Store(int32(StateStopped))

	ticks := 0
	for {
		if code, ok := rt.exit.Get(); ok {
			return rt.drain(code, ticks), nil
		}
		if err := ctx.Err(); err != nil {
			return ExitFailure, err
		}

		rt.tick()
		ticks++

		if code, ok := rt.exit.Get(); ok {
			return rt.drain(code, ticks), nil
		}
		if rt.idle() {
			rt.logger.Debug("luasched finished", "ticks", ticks)
			return ExitSuccess, nil
		}
		if rt.runnable() {
			continue
		}

		select {
		case <-rt.wake:
		case <-ctx.Done():
			return ExitFailure, ctx.Err()
		}
	}
}

func (rt *Runtime) drain(code ExitCode, ticks int) ExitCode {
	rt.status.Store(int32(StateDraining))
	rt.logger.Debug("luasched exit", "code", int(code), "ticks", ticks,
		"spawned", rt.spawned.len(), "deferred", rt.deferred.len(),
		"futures", rt.futures.Len(), "tasks", rt.exec.Outstanding())
	return code
}

// tick runs the spawn phase, the defer phase and one futures poll.
func (rt *Runtime) tick() {
	budget := rt.cfg.SpawnBudget
	for n := 0; budget < 0 || n < budget; n++ {
		if rt.exit.isSet() {
			return
		}
		qt, ok := rt.spawned.pop()
		if !ok {
			break
		}
		rt.resume(qt)
	}
	if budget >= 0 && rt.spawned.len() > 0 {
		rt.logger.Debug("luasched spawn budget exhausted", "budget", budget, "left", rt.spawned.len())
	}

	batch := rt.deferred.take()
	for i, qt := range batch {
		if rt.exit.isSet() {
			rt.deferred.requeue(batch[i:])
			return
		}
		rt.resume(qt)
	}

	if rt.exit.isSet() {
		return
	}
	rt.futures.poll()
}

func (rt *Runtime) idle() bool {
	return rt.spawned.len() == 0 &&
		rt.deferred.len() == 0 &&
		rt.futures.Len() == 0 &&
		rt.exec.Outstanding() == 0
}

func (rt *Runtime) runnable() bool {
	return rt.spawned.len() > 0 || rt.deferred.len() > 0 || rt.futures.hasWoken()
}

func (rt *Runtime) resume(qt queuedThread) {
	if qt.thread.done {
		return
	}
	rt.current = &qt
	values, errValue, ok := qt.thread.resume(rt.L, rt.coResume, qt.args)
	rt.current = nil

	if !ok {
		err := &ThreadRuntimeError{ID: qt.id, Value: errValue}
		rt.onError(qt.id, err)
		rt.results.insert(qt.id, ThreadResult{Err: err})
		return
	}
	if qt.thread.done {
		rt.results.insert(qt.id, ThreadResult{Values: values})
	}
}

func (rt *Runtime) logThreadError(id ThreadID, err error) {
	rt.logger.Error("luasched thread error", "thread", id.String(), "error", err)
}

// signal wakes Run if it is parked.
func (rt *Runtime) signal() {
	select {
	case rt.wake <- struct{}{}:
	default:
	}
}

// Close tears the runtime down. Running executor tasks see their context
// cancelled and are detached; queued threads and pending futures are
// dropped. Close must not run concurrently with Run.
func (rt *Runtime) Close() error {
	rt.closeOnce.Do(func() {
		rt.status.Store(int32(StateStopped))
		rt.exec.Close()
		rt.futures.close()
		rt.spawned.clear()
		rt.deferred.clear()
		if rt.ownsState {
			rt.L.Close()
		}
	})
	return nil
}

// Shutdown closes the runtime and waits for running executor tasks to
// return, or for ctx to be done. Hosts call it before releasing resources
// those tasks use, such as the kv store.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.Close()
	done := make(chan struct{})
	go func() {
		rt.exec.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
