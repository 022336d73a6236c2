package luasched

import lua "github.com/yuin/gopher-lua"

// threadSource converts argument 1 to a ThreadSource. Functions start a new
// thread; coroutines continue where they left off.
func threadSource(L *lua.LState, op string) ThreadSource {
	switch v := L.Get(1).(type) {
	case *lua.LFunction:
		return Function{Fn: v}
	case *lua.LState:
		return Coroutine{Co: v}
	default:
		L.ArgError(1, op+": function or thread expected, got "+v.Type().String())
		return nil
	}
}

func threadArgs(L *lua.LState) []lua.LValue {
	n := L.GetTop()
	if n < 2 {
		return nil
	}
	args := make([]lua.LValue, 0, n-1)
	for i := 2; i <= n; i++ {
		args = append(args, L.Get(i))
	}
	return args
}

func checkThreadID(L *lua.LState, n int) ThreadID {
	v := L.CheckNumber(n)
	if v < 1 {
		L.ArgError(n, "invalid thread id")
	}
	return ThreadID(v)
}

// builtinSpawn implements spawn(f, ...) -> id
func (h Handle) builtinSpawn(L *lua.LState) int {
	rt := h.mustRuntime(L, "spawn")
	id, err := rt.enqueue(L, &rt.spawned, "spawn", threadSource(L, "spawn"), threadArgs(L))
	if err != nil {
		L.RaiseError("%v", err)
	}
	L.Push(lua.LNumber(id))
	return 1
}

// builtinDefer implements defer(f, ...) -> id
func (h Handle) builtinDefer(L *lua.LState) int {
	rt := h.mustRuntime(L, "defer")
	id, err := rt.enqueue(L, &rt.deferred, "defer", threadSource(L, "defer"), threadArgs(L))
	if err != nil {
		L.RaiseError("%v", err)
	}
	L.Push(lua.LNumber(id))
	return 1
}

// builtinSetExitCode implements set_exit_code(code)
func (h Handle) builtinSetExitCode(L *lua.LState) int {
	code := L.OptInt(1, int(ExitSuccess))
	if err := h.SetExitCode(ExitCode(code)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

// builtinTrack implements track(id)
func (h Handle) builtinTrack(L *lua.LState) int {
	if err := h.TrackThread(checkThreadID(L, 1)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

// builtinWait implements wait(id). It suspends the calling thread until the
// tracked thread id has a result and returns nothing. Untracked ids return
// at once.
func (h Handle) builtinWait(L *lua.LState) int {
	rt := h.mustRuntime(L, "wait")
	id := checkThreadID(L, 1)

	ready := rt.results.Listen(id)
	select {
	case <-ready:
		return 0
	default:
	}
	return rt.yieldUntil(L, "wait", ready, func(wake func()) {
		if !rt.results.subscribe(id, wake) {
			wake()
		}
	}, func() []lua.LValue { return nil })
}

// builtinResult implements result(id) -> ok, ...
// It returns true and the thread's return values, false and the raised
// error, or nil when no result is available.
func (h Handle) builtinResult(L *lua.LState) int {
	r, ok, err := h.ThreadResult(checkThreadID(L, 1))
	if err != nil {
		L.RaiseError("%v", err)
	}
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	if r.Err != nil {
		L.Push(lua.LFalse)
		L.Push(errorValue(r.Err))
		return 2
	}
	L.Push(lua.LTrue)
	for _, v := range r.Values {
		L.Push(v)
	}
	return 1 + len(r.Values)
}
