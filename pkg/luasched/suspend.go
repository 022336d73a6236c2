package luasched

import (
	"context"
	"fmt"
	"weak"

	lua "github.com/yuin/gopher-lua"
)

// running returns the scheduled thread executing on L. Builtins that
// suspend may only be called from such a thread, not from a nested
// coroutine or from outside Run, and not below a Go function such as pcall:
// gopher-lua cannot yield across one.
func (rt *Runtime) running(L *lua.LState, op string) *queuedThread {
	cur := rt.current
	if cur == nil || cur.thread.co != L {
		L.RaiseError("%s: can only suspend a thread scheduled by the runtime", op)
	}
	if n := len(rt.protected); n > 0 {
		L.RaiseError("%s: cannot suspend inside %s", op, rt.protected[n-1])
	}
	if hasGoCaller(L) {
		L.RaiseError("%s: cannot suspend inside a Go function call", op)
	}
	return cur
}

// hasGoCaller reports whether a Go function sits between the running
// builtin and the bottom of L's call stack. Frames hidden behind Lua tail
// calls are not seen.
func hasGoCaller(L *lua.LState) bool {
	for level := 1; ; level++ {
		dbg, ok := L.GetStack(level)
		if !ok {
			return false
		}
		fn, err := L.GetInfo("fS", dbg, lua.LNil)
		if err != nil {
			return false
		}
		if f, ok := fn.(*lua.LFunction); ok && f.IsG {
			return true
		}
		// Past the last tail call GetStack keeps returning the bottom frame.
		if dbg.What == "main" {
			return false
		}
	}
}

// guardProtected wraps the global protected-call function name so that
// suspending builtins know it is active.
func (rt *Runtime) guardProtected(L *lua.LState, name string) {
	orig, ok := L.GetGlobal(name).(*lua.LFunction)
	if !ok || !orig.IsG {
		return
	}
	w := weak.Make(rt)
	L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
		rt := w.Value()
		if rt == nil {
			return orig.GFunction(L)
		}
		rt.protected = append(rt.protected, name)
		defer func() { rt.protected = rt.protected[:len(rt.protected)-1] }()
		return orig.GFunction(L)
	}))
}

// yieldUntil suspends the running thread until ready is closed. subscribe
// must arrange for its argument to be called once ready is closed. When the
// thread resumes, values() supplies what the suspending call returns.
func (rt *Runtime) yieldUntil(L *lua.LState, op string, ready <-chan struct{}, subscribe func(func()), values func() []lua.LValue) int {
	cur := rt.running(L, op)
	id, th := cur.id, cur.thread

	subscribed := false
	err := rt.futures.Push(FutureFunc(func(w *Waker) bool {
		select {
		case <-ready:
			rt.spawned.push(queuedThread{id: id, thread: th, args: values()})
			return true
		default:
		}
		if !subscribed {
			subscribed = true
			subscribe(w.Wake)
		}
		return false
	}))
	if err != nil {
		L.RaiseError("%v", &ContractViolation{Op: op, Reason: "runtime is closed"})
	}
	return L.Yield()
}

// AsyncFunc is Go work callable from scripts. Arguments and results are
// plain Go values converted with the same rules as the kv builtins.
type AsyncFunc func(ctx context.Context, args []any) ([]any, error)

// NewAsyncFunction wraps fn as a Lua function that suspends the calling
// thread while fn runs on the background pool. The thread resumes with fn's
// results, or with nil and the error message.
func (rt *Runtime) NewAsyncFunction(fn AsyncFunc) *lua.LFunction {
	return rt.newTaskFunction("async", fn, false)
}

// NewBlockingFunction is NewAsyncFunction on the blocking pool.
func (rt *Runtime) NewBlockingFunction(fn AsyncFunc) *lua.LFunction {
	return rt.newTaskFunction("blocking", fn, true)
}

func (rt *Runtime) newTaskFunction(op string, fn AsyncFunc, blocking bool) *lua.LFunction {
	h := rt.Handle()
	return rt.L.NewFunction(func(L *lua.LState) int {
		rt, err := h.runtime(op)
		if err != nil {
			L.RaiseError("%v", err)
		}
		rt.running(L, op)
		args := make([]any, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			v, err := luaToGo(L.Get(i))
			if err != nil {
				L.RaiseError("%s: argument #%d: %v", op, i, err)
			}
			args = append(args, v)
		}

		var task *Task[[]any]
		if blocking {
			ctx := rt.exec.ctx
			task, err = SpawnBlocking(rt.Spawner(), func() ([]any, error) {
				return fn(ctx, args)
			})
		} else {
			task, err = Spawn(rt.Spawner(), func(ctx context.Context) ([]any, error) {
				return fn(ctx, args)
			})
		}
		if err != nil {
			L.RaiseError("%v", err)
		}
		return rt.awaitTask(L, op, task)
	})
}

// awaitTask suspends the running thread until task finishes.
func (rt *Runtime) awaitTask(L *lua.LState, op string, task *Task[[]any]) int {
	return rt.yieldUntil(L, op, task.Done(), task.onDone, func() []lua.LValue {
		out, err := task.Result()
		if err != nil {
			return []lua.LValue{lua.LNil, lua.LString(err.Error())}
		}
		values := make([]lua.LValue, 0, len(out))
		for _, v := range out {
			values = append(values, goToLua(rt.L, v))
		}
		return values
	})
}

func errorValue(err error) lua.LValue {
	if tre, ok := err.(*ThreadRuntimeError); ok {
		return tre.Value
	}
	return lua.LString(fmt.Sprint(err))
}
