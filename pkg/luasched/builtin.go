package luasched

import lua "github.com/yuin/gopher-lua"

// RegisterBuiltins installs the scheduler globals into the Lua state.
func (rt *Runtime) RegisterBuiltins() {
	h := rt.Handle()
	for name, fn := range map[string]lua.LGFunction{
		"spawn":         h.builtinSpawn,
		"defer":         h.builtinDefer,
		"set_exit_code": h.builtinSetExitCode,
		"track":         h.builtinTrack,
		"wait":          h.builtinWait,
		"result":        h.builtinResult,
		"sleep":         h.builtinSleep,
		"log":           h.builtinLog,
		"uuid":          builtinUUID,
		"kv_get":        h.builtinKVGet,
		"kv_set":        h.builtinKVSet,
		"kv_del":        h.builtinKVDel,
		"kv_keys":       h.builtinKVKeys,
	} {
		rt.L.SetGlobal(name, rt.L.NewFunction(fn))
	}
}

// mustRuntime resolves the handle or raises the contract violation as a
// Lua error.
func (h Handle) mustRuntime(L *lua.LState, op string) *Runtime {
	rt, err := h.runtime(op)
	if err != nil {
		L.RaiseError("%v", err)
	}
	return rt
}
