// Package luasched is a cooperative scheduler for Lua script threads.
//
// A Runtime owns a gopher-lua state and drives coroutines created from it.
// Threads are queued on one of two queues:
//
//   - the spawn queue, drained to a bounded fixed point every tick
//   - the defer queue, drained once per tick from a snapshot
//
// Threads suspend on asynchronous work (sleep, waiting for another thread,
// background or blocking Go functions) and are resumed by futures polled on
// the goroutine that called Run. Background work runs on an Executor with
// bounded worker pools.
//
// Basic usage:
//
//	rt := luasched.New(nil)
//	defer rt.Close()
//	rt.RegisterBuiltins()
//
//	id, err := rt.SpawnThread(luasched.Chunk{Name: "main", Source: src})
//	if err != nil {
//	    return err
//	}
//	rt.TrackThread(id)
//	code, err := rt.Run(ctx)
//
// Scripts see the following globals after RegisterBuiltins:
//
//	spawn(f, ...) -> id      run f before anything deferred
//	defer(f, ...) -> id      run f after the current spawn work
//	set_exit_code(code)      stop the scheduler with code
//	track(id)                keep the result of thread id
//	wait(id)                 suspend until thread id has a result
//	result(id) -> ok, ...    take the result of thread id
//	sleep(seconds) -> secs   suspend for at least seconds
//	log(level, msg, ...)     structured log line
//	uuid() -> string         random UUID
//	kv_get/kv_set/kv_del     key-value store access
//
// The Lua state is not safe for concurrent use. SpawnThread, DeferThread and
// everything touching Lua values must run on the goroutine that owns the
// state: before Run, or from inside builtins and futures during Run.
package luasched
